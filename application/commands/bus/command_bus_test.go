package bus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type pingCommand struct {
	Name string
}

func (c pingCommand) Validate() error {
	if c.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func TestCommandBus_SendDispatchesByType(t *testing.T) {
	// Arrange
	commandBus := NewCommandBus(LoggingMiddleware(zap.NewNop()))
	err := commandBus.Register(pingCommand{}, CommandHandlerFunc(func(_ context.Context, cmd Command) (interface{}, error) {
		return "pong " + cmd.(pingCommand).Name, nil
	}))
	require.NoError(t, err)

	// Act
	result, err := commandBus.Send(context.Background(), pingCommand{Name: "alice"})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "pong alice", result)
}

func TestCommandBus_ValidationStopsDispatch(t *testing.T) {
	commandBus := NewCommandBus()
	called := false
	require.NoError(t, commandBus.Register(pingCommand{}, CommandHandlerFunc(func(context.Context, Command) (interface{}, error) {
		called = true
		return nil, nil
	})))

	_, err := commandBus.Send(context.Background(), pingCommand{})

	assert.EqualError(t, err, "name is required")
	assert.False(t, called)
}

func TestCommandBus_DuplicateRegistration(t *testing.T) {
	commandBus := NewCommandBus()
	handler := CommandHandlerFunc(func(context.Context, Command) (interface{}, error) { return nil, nil })

	require.NoError(t, commandBus.Register(pingCommand{}, handler))
	assert.Error(t, commandBus.Register(pingCommand{}, handler))
}

func TestCommandBus_UnknownCommand(t *testing.T) {
	_, err := NewCommandBus().Send(context.Background(), pingCommand{Name: "x"})
	assert.ErrorContains(t, err, "no handler registered")
}

func TestCommandBus_HandlerErrorIsUnwrapped(t *testing.T) {
	sentinel := errors.New("boom")
	commandBus := NewCommandBus(LoggingMiddleware(zap.NewNop()))
	require.NoError(t, commandBus.Register(pingCommand{}, CommandHandlerFunc(func(context.Context, Command) (interface{}, error) {
		return nil, sentinel
	})))

	_, err := commandBus.Send(context.Background(), pingCommand{Name: "x"})

	assert.Same(t, sentinel, err)
}

func TestCommandBus_MiddlewareOrder(t *testing.T) {
	var order []string
	trace := func(name string) Middleware {
		return func(next CommandHandler) CommandHandler {
			return CommandHandlerFunc(func(ctx context.Context, cmd Command) (interface{}, error) {
				order = append(order, name)
				return next.Handle(ctx, cmd)
			})
		}
	}
	commandBus := NewCommandBus(trace("outer"), trace("inner"))
	require.NoError(t, commandBus.Register(pingCommand{}, CommandHandlerFunc(func(context.Context, Command) (interface{}, error) {
		order = append(order, "handler")
		return nil, nil
	})))

	_, err := commandBus.Send(context.Background(), pingCommand{Name: "x"})

	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}
