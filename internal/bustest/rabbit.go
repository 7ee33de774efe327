package bustest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/log"
	rabbittest "github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"gocloud.dev/pubsub"
	"gocloud.dev/pubsub/rabbitpubsub"
)

// RabbitImage exposes the image to use for the RabbitMQ container.
//
// The management variant is chosen because it is the variant we use in
// production, and its management surface is handy when inspecting a failed
// test.
//
// See <https://hub.docker.com/_/rabbitmq> for more images.
const RabbitImage = "docker.io/rabbitmq:3.13-management-alpine"

// Default port of the management HTTP endpoint:
// <https://www.rabbitmq.com/docs/management>
const rabbitManagementHTTP = nat.Port("15672/tcp")

// SetupRabbit spins up a new RabbitMQ Docker container and returns an AMQP
// connection to it. The returned connection is closed during cleanup of the
// provided [*testing.T].
//
// The provided [*testing.T] is used to:
//   - skip the test if the '-short' flag is set,
//   - clean up the container after the test completes, and
//   - mark the test as parallel to avoid blocking other long-running tests.
//
// This is a higher-level wrapper around the functionality provided by
// testcontainers-go and its rabbitmq module. Use this function to avoid
// duplicating the same boilerplate code in common tests that require a
// standard broker.
func SetupRabbit(t *testing.T) *amqp.Connection {
	t.Helper()

	// Container-based tests are long-running and should respect the '-short' flag.
	if testing.Short() {
		t.Skip("Skipping container-based test in short mode...")
	}

	// Always run container-based tests in parallel.
	t.Parallel()

	ctx := context.Background()

	container, err := rabbittest.Run(ctx, RabbitImage,
		testcontainers.WithLogger(log.TestLogger(t)),
	)
	if err != nil {
		t.Fatal("Failed to run rabbitmq container:", err)
	}
	t.Cleanup(func() {
		t.Logf("Terminating rabbitmq container %q...", container.GetContainerID())
		if err := container.Terminate(ctx); err != nil {
			t.Error("Encountered an error during cleanup; terminate container:", err)
		}
	})

	amqpURL, err := container.AmqpURL(ctx)
	if err != nil {
		t.Fatal("Failed to get amqp url:", err)
	}

	// Local developers may wish to look at the broker manually, so we provide
	// a URL to the management UI. The default guest/guest credentials apply.
	managementURL, err := container.PortEndpoint(ctx, rabbitManagementHTTP, "http")
	if err != nil {
		t.Fatal("Failed to get management endpoint:", err)
	}

	conn, err := dialWithRetries(t, ctx, amqpURL)
	if err != nil {
		t.Fatalf("Failed to establish a connection with the remote rabbitmq server after retries: %v", err)
	}
	t.Cleanup(func() {
		if err := conn.Close(); err != nil {
			t.Error("Encountered an error during cleanup while closing the amqp connection:", err)
		}
	})

	// Keep the container running for manual debugging of the broker.
	t.Cleanup(func() {
		if t.Failed() && *Inspect {
			t.Logf("Container %v is still running for inspection (Ctrl+C to terminate)...", container.GetContainerID())
			t.Logf("Management URL = %s", managementURL)
			t.Logf("AMQP URL = %s", amqpURL)
			waitForInspection()
		}
	})

	return conn
}

// OpenBus declares the fanout exchange named topic on the broker, binds a
// fresh queue to it, and returns the pubsub endpoints for both ends. The
// rabbit driver requires the exchange and queue to pre-exist; in production
// they are provisioned by deployment tooling, so tests provision their own
// here.
func OpenBus(t *testing.T, conn *amqp.Connection, topic string) (*pubsub.Topic, *pubsub.Subscription) {
	t.Helper()

	ch, err := conn.Channel()
	if err != nil {
		t.Fatal("Failed to open an amqp channel:", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(topic, "fanout", false, false, false, false, nil); err != nil {
		t.Fatalf("Failed to declare exchange %q: %v", topic, err)
	}
	queue, err := ch.QueueDeclare(topic, false, false, false, false, nil)
	if err != nil {
		t.Fatalf("Failed to declare queue for %q: %v", topic, err)
	}
	if err := ch.QueueBind(queue.Name, "", topic, false, nil); err != nil {
		t.Fatalf("Failed to bind queue %q to exchange %q: %v", queue.Name, topic, err)
	}

	sink := rabbitpubsub.OpenTopic(conn, topic, nil)
	source := rabbitpubsub.OpenSubscription(conn, queue.Name, nil)

	ctx := context.Background()
	t.Cleanup(func() {
		if err := source.Shutdown(ctx); err != nil {
			t.Error("Encountered an error during cleanup while shutting down the subscription:", err)
		}
		if err := sink.Shutdown(ctx); err != nil {
			t.Error("Encountered an error during cleanup while shutting down the topic:", err)
		}
	})

	return sink, source
}

// Call dialWithRetries to open an AMQP connection while also performing
// retries.
//
// In the case that the container returns before the broker is fully ready,
// it is useful to perform a limited number of connection retries, before
// determining that the broker is not reachable.
func dialWithRetries(t *testing.T, ctx context.Context, url string) (*amqp.Connection, error) {
	t.Helper()

	const retryLimit = 5
	const retryPause = 100 * time.Millisecond

	// Initial attempt to connect without a wait.
	conn, err := amqp.Dial(url)
	if err == nil {
		return conn, nil
	}
	// Prefix each subsequent retry with a short wait.
	for r := range retryLimit {
		t.Logf("Attempting retry [%d/%d] after failing to establish a connection with the remote rabbitmq server: %v", r, retryLimit, err)
		// Wait, while honouring context cancellations.
		select {
		case <-time.After(retryPause):
		case <-ctx.Done():
			return nil, fmt.Errorf("retry pause interrupted")
		}
		// Now, rerun the dial.
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
	}
	return nil, err
}
