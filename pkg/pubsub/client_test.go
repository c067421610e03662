package pubsub

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/quoteflow-backend/pkg/config"
)

type fakeAdmin struct {
	existing map[string]bool
	created  []string
	getErr   error
}

func (f *fakeAdmin) GetTopic(_ context.Context, req *pubsubpb.GetTopicRequest) (*pubsubpb.Topic, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if !f.existing[req.GetTopic()] {
		return nil, status.Error(codes.NotFound, "topic not found")
	}
	return &pubsubpb.Topic{Name: req.GetTopic()}, nil
}

func (f *fakeAdmin) CreateTopic(_ context.Context, req *pubsubpb.Topic) (*pubsubpb.Topic, error) {
	f.created = append(f.created, req.GetName())
	f.existing[req.GetName()] = true
	return req, nil
}

func testClient(admin *fakeAdmin, create bool) *Client {
	return &Client{
		admin:     admin,
		projectID: "quoteflow-dev",
		topics:    []string{"domain", "email"},
		create:    create,
	}
}

func TestTopicResourceName(t *testing.T) {
	c := &Client{projectID: "quoteflow-prod"}
	require.Equal(t, "projects/quoteflow-prod/topics/domain-events", c.topicResourceName("domain-events"))
	require.Equal(t, "projects/other/topics/email", c.topicResourceName("projects/other/topics/email"))
	require.Empty(t, c.topicResourceName("  "))
	require.Empty(t, (&Client{}).topicResourceName("domain"))
}

func TestTopicNamesSkipsBlanksAndDuplicates(t *testing.T) {
	require.Equal(t, []string{"domain"}, topicNames(config.PubSubConfig{DomainTopic: "domain", EmailTopic: " "}))
	require.Equal(t, []string{"events"}, topicNames(config.PubSubConfig{DomainTopic: "events", EmailTopic: "events"}))
	require.Empty(t, topicNames(config.PubSubConfig{}))
}

func TestVerifyTopicsRequiresExistingTopics(t *testing.T) {
	admin := &fakeAdmin{existing: map[string]bool{"projects/quoteflow-dev/topics/domain": true}}
	err := testClient(admin, false).verifyTopics(context.Background())
	require.EqualError(t, err, `topic "email" does not exist`)
	require.Empty(t, admin.created)
}

func TestVerifyTopicsCreatesMissingWhenAllowed(t *testing.T) {
	admin := &fakeAdmin{existing: map[string]bool{"projects/quoteflow-dev/topics/domain": true}}
	c := testClient(admin, true)
	require.NoError(t, c.verifyTopics(context.Background()))
	require.Equal(t, []string{"projects/quoteflow-dev/topics/email"}, admin.created)
	require.NoError(t, c.Ping(context.Background()))
}

func TestVerifyTopicsSurfacesTransportErrors(t *testing.T) {
	admin := &fakeAdmin{existing: map[string]bool{}, getErr: status.Error(codes.Unavailable, "down")}
	err := testClient(admin, true).verifyTopics(context.Background())
	require.ErrorContains(t, err, `checking topic "domain"`)
	require.Empty(t, admin.created)
}

func TestClientOptions(t *testing.T) {
	require.Len(t, clientOptions(config.GCPConfig{CredentialsJSON: `{"type":"service_account"}`}), 1)
	require.Len(t, clientOptions(config.GCPConfig{ApplicationCredentials: "/secrets/sa.json"}), 1)
	require.Empty(t, clientOptions(config.GCPConfig{}))
}

func TestNilClient(t *testing.T) {
	var c *Client
	require.Nil(t, c.Publisher("domain"))
	require.True(t, errors.Is(c.Ping(context.Background()), errClosed))
	require.NoError(t, c.Close())
}
