// The routingd command runs the routing service: it answers travel-time
// queries by consulting the twin service's state surface and applying the
// linear congestion model.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/danielorbach/go-component"

	"github.com/roadtwin/roadtwin"
	"github.com/roadtwin/roadtwin/config"
	"github.com/roadtwin/roadtwin/httpapi"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "routingd:", err)
		os.Exit(1)
	}

	component.RunProc(func(l *component.L) {
		twin := httpapi.NewTwinClient(conf.Routing.TwinURL)
		estimator := roadtwin.NewEstimator(twin,
			time.Duration(conf.Routing.BaseTravelTimeMin*float64(time.Minute)),
			time.Duration(conf.Routing.UnitDelayMin*float64(time.Minute)),
		)
		l.Fork("http", httpapi.Serve(conf.HTTP.Addr, httpapi.RoutingRouter(estimator)))
	})
}
