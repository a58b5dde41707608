package sagas

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultCompensationTimeout bounds the rollback of completed steps
const DefaultCompensationTimeout = 5 * time.Second

// Step is a single forward action with an optional rollback
type Step struct {
	Name       string
	Execute    func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// SagaState represents the current state of a saga execution
type SagaState string

const (
	SagaStatePending      SagaState = "PENDING"
	SagaStateRunning      SagaState = "RUNNING"
	SagaStateCompleted    SagaState = "COMPLETED"
	SagaStateCompensating SagaState = "COMPENSATING"
	SagaStateCompensated  SagaState = "COMPENSATED"
	SagaStateFailed       SagaState = "FAILED"
)

// CompensationError reports a failed step whose rollback also failed.
// The state left behind by the completed steps was not undone.
type CompensationError struct {
	Saga          string
	Step          string
	Err           error
	CompensateErr error
}

func (e *CompensationError) Error() string {
	return fmt.Sprintf("saga %s failed at step %s (%v) and compensation failed: %v", e.Saga, e.Step, e.Err, e.CompensateErr)
}

func (e *CompensationError) Unwrap() error {
	return e.Err
}

// Saga runs steps in order. When a step fails, the completed steps are
// compensated in reverse order. A Saga is single use.
type Saga struct {
	id                  string
	name                string
	steps               []Step
	state               SagaState
	compensationTimeout time.Duration
	logger              *zap.Logger
}

// NewSaga creates a new saga instance
func NewSaga(name string, logger *zap.Logger) *Saga {
	return &Saga{
		id:                  uuid.New().String(),
		name:                name,
		state:               SagaStatePending,
		compensationTimeout: DefaultCompensationTimeout,
		logger:              logger,
	}
}

// AddStep appends a step. compensate may be nil.
func (s *Saga) AddStep(name string, execute, compensate func(ctx context.Context) error) *Saga {
	s.steps = append(s.steps, Step{Name: name, Execute: execute, Compensate: compensate})
	return s
}

// WithCompensationTimeout overrides DefaultCompensationTimeout
func (s *Saga) WithCompensationTimeout(d time.Duration) *Saga {
	if d > 0 {
		s.compensationTimeout = d
	}
	return s
}

// Execute runs the saga. On a compensated failure the failing step's error is
// returned unchanged; when the rollback fails a *CompensationError is returned.
func (s *Saga) Execute(ctx context.Context) error {
	s.state = SagaStateRunning

	for i, step := range s.steps {
		if err := step.Execute(ctx); err != nil {
			s.logger.Debug("Saga step failed",
				zap.String("saga_id", s.id),
				zap.String("saga_name", s.name),
				zap.String("step_name", step.Name),
				zap.Error(err),
			)

			if compensateErr := s.compensate(ctx, i); compensateErr != nil {
				s.state = SagaStateFailed
				return &CompensationError{Saga: s.name, Step: step.Name, Err: err, CompensateErr: compensateErr}
			}
			s.state = SagaStateCompensated
			return err
		}
	}

	s.state = SagaStateCompleted
	return nil
}

// compensate rolls back the first n steps in reverse order. It runs detached
// from ctx cancellation since a timed-out forward step is the usual trigger.
func (s *Saga) compensate(ctx context.Context, n int) error {
	s.state = SagaStateCompensating

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.compensationTimeout)
	defer cancel()

	var firstErr error
	for i := n - 1; i >= 0; i-- {
		step := s.steps[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			s.logger.Error("Compensation failed",
				zap.String("saga_id", s.id),
				zap.String("saga_name", s.name),
				zap.String("step_name", step.Name),
				zap.Error(err),
			)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		s.logger.Info("Saga step compensated",
			zap.String("saga_id", s.id),
			zap.String("saga_name", s.name),
			zap.String("step_name", step.Name),
		)
	}
	return firstErr
}

// GetState returns the current state of the saga
func (s *Saga) GetState() SagaState {
	return s.state
}

// GetID returns the saga ID
func (s *Saga) GetID() string {
	return s.id
}
