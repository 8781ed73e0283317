package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"github.com/angelmondragon/tradelink-backend/pkg/config"
	"github.com/angelmondragon/tradelink-backend/pkg/logger"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Role selects which resources a process depends on. Readiness checks only
// look at those.
type Role string

const (
	RolePublisher  Role = "publisher"
	RoleSubscriber Role = "subscriber"
)

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNoResources       = errors.New("no pubsub resources configured")
	errNotInitialized    = errors.New("pubsub client not initialized")
)

// Client holds one Pub/Sub connection plus the event topics and
// notification subscriptions it was configured with.
type Client struct {
	client  *pubsub.Client
	project string
	role    Role
	topics  []string
	subs    []string
}

// NewClient dials Pub/Sub and verifies that every resource the role needs
// already exists. Resources are never created here; provisioning belongs to
// infrastructure.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, role Role, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errProjectIDRequired
	}
	if role != RolePublisher && role != RoleSubscriber {
		return nil, fmt.Errorf("unknown pubsub role %q", role)
	}

	conn, err := pubsub.NewClient(ctx, project, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{
		client:  conn,
		project: project,
		role:    role,
		topics:  nonEmpty(cfg.OrdersTopic, cfg.InvoicesTopic),
		subs:    nonEmpty(cfg.OrderNotificationSubscription, cfg.InvoiceNotificationSubscription),
	}
	if err := c.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}

	if logg != nil {
		logCtx := logg.WithFields(ctx, map[string]any{
			"project":       project,
			"role":          string(role),
			"topics":        c.topics,
			"subscriptions": c.subs,
		})
		logg.Info(logCtx, "pubsub client initialized")
	}
	return c, nil
}

func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	creds := strings.TrimSpace(gcp.CredentialsJSON)
	if creds == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
}

func nonEmpty(names ...string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// Ping confirms the role's topics or subscriptions are reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	if c.role == RolePublisher {
		return c.checkAll(ctx, "topics", c.topics, c.topicExists)
	}
	return c.checkAll(ctx, "subscriptions", c.subs, c.subscriptionExists)
}

func (c *Client) checkAll(ctx context.Context, kind string, names []string, exists func(context.Context, string) error) error {
	if len(names) == 0 {
		return fmt.Errorf("%w: %s", errNoResources, kind)
	}
	for _, name := range names {
		if err := exists(ctx, c.qualify(name, kind)); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) topicExists(ctx context.Context, fullName string) error {
	_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: fullName})
	return lookupError("topic", fullName, err)
}

func (c *Client) subscriptionExists(ctx context.Context, fullName string) error {
	_, err := c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: fullName})
	return lookupError("subscription", fullName, err)
}

func lookupError(kind, name string, err error) error {
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%s %s does not exist", kind, name)
	default:
		return fmt.Errorf("looking up %s %s: %w", kind, name, err)
	}
}

// NotificationSubscriptions returns one subscriber per event topic for the
// notification worker.
func (c *Client) NotificationSubscriptions() []*pubsub.Subscriber {
	if c == nil || c.client == nil {
		return nil
	}
	subs := make([]*pubsub.Subscriber, 0, len(c.subs))
	for _, name := range c.subs {
		subs = append(subs, c.client.Subscriber(c.qualify(name, "subscriptions")))
	}
	return subs
}

// Publisher returns a handle for a topic ID or full resource name.
func (c *Client) Publisher(topic string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	fullName := c.qualify(topic, "topics")
	if fullName == "" {
		return nil
	}
	return c.client.Publisher(fullName)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// qualify expands a short ID into projects/<project>/<kind>/<id>. Names that
// are already fully qualified pass through.
func (c *Client) qualify(name, kind string) string {
	if c == nil {
		return ""
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/"+kind+"/") {
		return name
	}
	if c.project == "" {
		return ""
	}
	return "projects/" + c.project + "/" + kind + "/" + name
}
