package gateway

import (
	"context"
	"sync"
	"testing"

	"github.com/go-go-golems/microsurgery-gpt/pkg/persona"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type fakeChat struct {
	send func(ctx context.Context, text string) (string, error)
}

func (c fakeChat) SendMessage(ctx context.Context, text string) (string, error) {
	return c.send(ctx, text)
}

// recordingFactory creates chats that answer with "<key>:<text>" and records
// every key a chat was created for.
type recordingFactory struct {
	mu       sync.Mutex
	keys     []string
	personas []*persona.Settings
}

func (f *recordingFactory) NewChat(ctx context.Context, apiKey string, p *persona.Settings) (Chat, error) {
	f.mu.Lock()
	f.keys = append(f.keys, apiKey)
	f.personas = append(f.personas, p)
	f.mu.Unlock()
	return fakeChat{send: func(ctx context.Context, text string) (string, error) {
		return apiKey + ":" + text, nil
	}}, nil
}

func TestGateway_SendUnconfigured(t *testing.T) {
	g := New(&recordingFactory{})
	require.False(t, g.IsConfigured())

	_, err := g.Send(context.Background(), "hello")
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestGateway_ConfigureEmptyKey(t *testing.T) {
	f := &recordingFactory{}
	g := New(f)
	require.ErrorIs(t, g.Configure(context.Background(), ""), ErrEmptyAPIKey)
	require.ErrorIs(t, g.Configure(context.Background(), "   "), ErrEmptyAPIKey)
	require.False(t, g.IsConfigured())
	require.Empty(t, f.keys)
}

func TestGateway_ConfigureNoFactory(t *testing.T) {
	g := New(nil)
	require.ErrorIs(t, g.Configure(context.Background(), "K1"), ErrNoFactory)
}

func TestGateway_UsesPersona(t *testing.T) {
	f := &recordingFactory{}
	g := New(f)
	require.NoError(t, g.Configure(context.Background(), "K1"))
	require.Len(t, f.personas, 1)
	require.Equal(t, "gemini-2.5-flash", f.personas[0].Model)
	require.InDelta(t, 0.3, f.personas[0].Temperature, 1e-9)

	custom := &persona.Settings{Model: "gemini-test", SystemInstruction: "Be brief.", Temperature: 0.9}
	f2 := &recordingFactory{}
	g2 := New(f2, WithPersona(custom))
	require.NoError(t, g2.Configure(context.Background(), "K1"))
	require.Equal(t, "gemini-test", f2.personas[0].Model)
	require.Equal(t, "Be brief.", g2.Persona().SystemInstruction)
}

func TestGateway_ReconfigureSwapsHandle(t *testing.T) {
	f := &recordingFactory{}
	g := New(f)
	ctx := context.Background()

	require.NoError(t, g.Configure(ctx, "K1"))
	reply, err := g.Send(ctx, "A")
	require.NoError(t, err)
	require.Equal(t, "K1:A", reply)

	require.NoError(t, g.Configure(ctx, "K2"))
	reply, err = g.Send(ctx, "B")
	require.NoError(t, err)
	require.Equal(t, "K2:B", reply)
	require.Equal(t, []string{"K1", "K2"}, f.keys)
}

func TestGateway_ReconfigureSameKeyKeepsHandle(t *testing.T) {
	f := &recordingFactory{}
	g := New(f)
	ctx := context.Background()

	require.NoError(t, g.Configure(ctx, "K1"))
	require.NoError(t, g.Configure(ctx, " K1 "))
	require.Equal(t, []string{"K1"}, f.keys)
}

func TestGateway_SendFailureWrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	g := New(ChatFactoryFunc(func(ctx context.Context, apiKey string, p *persona.Settings) (Chat, error) {
		return fakeChat{send: func(ctx context.Context, text string) (string, error) {
			return "", cause
		}}, nil
	}))
	require.NoError(t, g.Configure(context.Background(), "K1"))

	_, err := g.Send(context.Background(), "hello")
	require.Error(t, err)
	require.True(t, IsGatewayError(err))
	require.ErrorIs(t, err, cause)
	require.Equal(t, cause, errors.Cause(err))

	var ge *GatewayError
	require.True(t, errors.As(err, &ge))
	require.Equal(t, "send", ge.Op)
}

func TestGateway_ConfigureFailure(t *testing.T) {
	g := New(ChatFactoryFunc(func(ctx context.Context, apiKey string, p *persona.Settings) (Chat, error) {
		return nil, errors.New("boom")
	}))
	err := g.Configure(context.Background(), "K1")
	require.True(t, IsGatewayError(err))
	require.False(t, g.IsConfigured())
}

func TestGateway_EmptyReply(t *testing.T) {
	g := New(ChatFactoryFunc(func(ctx context.Context, apiKey string, p *persona.Settings) (Chat, error) {
		return fakeChat{send: func(ctx context.Context, text string) (string, error) {
			return "", nil
		}}, nil
	}))
	require.NoError(t, g.Configure(context.Background(), "K1"))
	reply, err := g.Send(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, "", reply)
}
