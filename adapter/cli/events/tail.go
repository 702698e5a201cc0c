package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/felixgeelhaar/keystone/adapter/cli"
	"github.com/felixgeelhaar/keystone/internal/shared/infrastructure/eventbus"
	"github.com/spf13/cobra"
)

var (
	queueName  string
	eventTypes []string
	asJSON     bool
)

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print events published to RabbitMQ",
	Long: `Bind a queue to the event exchange and print every message until
interrupted. Requires RABBITMQ_URL; the exchange defaults to
RABBITMQ_EXCHANGE. Without --queue a temporary queue is declared and
removed on exit.

Examples:
  keystone events tail
  keystone events tail --type number.created --type number.value_added
  keystone events tail --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.Config == nil {
			return fmt.Errorf("application not initialized")
		}

		registry := eventbus.NewConsumerRegistry(slog.Default())
		consumer, err := eventbus.NewRabbitMQConsumer(eventbus.RabbitMQConsumerConfig{
			URL:       app.Config.RabbitMQURL,
			QueueName: queueName,
			Exchange:  app.Config.RabbitMQExchange,
		}, registry)
		if err != nil {
			return err
		}
		defer func() { _ = consumer.Close() }()

		if err := consumer.Subscribe(newPrinter(cmd.OutOrStdout(), eventTypes, asJSON)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "tailing %s on queue %s\n", consumer.Exchange(), consumer.Queue())

		err = consumer.Start(cmd.Context())
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	tailCmd.Flags().StringVar(&queueName, "queue", "", "durable queue to bind (default a temporary queue)")
	tailCmd.Flags().StringSliceVarP(&eventTypes, "type", "t", nil, "schema names to follow (default all)")
	tailCmd.Flags().BoolVar(&asJSON, "json", false, "print raw messages as JSON lines")
}

// printer writes each message it receives to out.
type printer struct {
	mu     sync.Mutex
	out    io.Writer
	types  []string
	asJSON bool
}

func newPrinter(out io.Writer, types []string, asJSON bool) *printer {
	if len(types) == 0 {
		types = []string{eventbus.AllEvents}
	}
	return &printer{out: out, types: types, asJSON: asJSON}
}

func (p *printer) EventTypes() []string {
	return p.types
}

func (p *printer) Handle(_ context.Context, msg *eventbus.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.asJSON {
		return json.NewEncoder(p.out).Encode(msg)
	}

	line := fmt.Sprintf("%s %s/%s v%d %s",
		msg.OccurredAt.Format("15:04:05.000"),
		msg.AggregateType,
		msg.AggregateID,
		msg.Version,
		msg.RoutingKey,
	)
	if payload := strings.TrimSpace(string(msg.Payload)); payload != "" && payload != "{}" {
		line += " " + payload
	}
	_, err := fmt.Fprintln(p.out, line)
	return err
}
