// The ingestiond command runs the ingestion service: it accepts sensor
// readings over HTTP, validates and stamps them, and publishes them to the
// traffic event bus.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/danielorbach/go-component"
	_ "gocloud.dev/pubsub/mempubsub"
	_ "gocloud.dev/pubsub/rabbitpubsub"

	"github.com/roadtwin/roadtwin"
	"github.com/roadtwin/roadtwin/config"
	"github.com/roadtwin/roadtwin/httpapi"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	flag.Parse()

	conf, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ingestiond:", err)
		os.Exit(1)
	}

	component.RunProc(func(l *component.L) {
		sink, err := roadtwin.OpenTopic(l.GraceContext(), conf.Bus.TopicURL)
		if err != nil {
			l.Fatal(err)
		}
		l.CleanupBackground(sink.Shutdown)

		gateway := roadtwin.NewGateway(roadtwin.NewPublisher(conf.Bus.TopicURL, sink))
		l.Fork("http", httpapi.Serve(conf.HTTP.Addr, httpapi.IngestRouter(gateway)))
	})
}
