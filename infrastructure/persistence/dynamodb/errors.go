package dynamodb

import (
	"context"
	stderrors "errors"
	"time"

	"promptstore/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

// classifyError maps an SDK failure onto the error taxonomy. Backend
// messages stay in the cause.
func classifyError(err error, operation, scope string, retryAfter time.Duration) error {
	if err == nil {
		return nil
	}

	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.NewTimeoutError(operation).WithCause(err).WithOperation(operation, scope)
	case stderrors.Is(err, context.Canceled):
		return errors.NewUnavailableError("dynamodb").WithCause(err).WithOperation(operation, scope)
	}

	var tce *types.TransactionCanceledException
	if stderrors.As(err, &tce) {
		return classifyCancellation(tce, operation, scope, retryAfter)
	}

	var ae smithy.APIError
	if stderrors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "ProvisionedThroughputExceededException", "RequestLimitExceeded", "ThrottlingException":
			return errors.NewThrottledError(retryAfter).WithCause(err).WithOperation(operation, scope)
		case "ValidationException", "SerializationException":
			return errors.NewInternalError("store rejected the request").WithCause(err).WithOperation(operation, scope)
		}
	}

	return errors.NewUnavailableError("dynamodb").WithCause(err).WithOperation(operation, scope)
}

// classifyCancellation inspects per-item reasons of a cancelled transaction.
// The first item is the demote, the second the create.
func classifyCancellation(tce *types.TransactionCanceledException, operation, scope string, retryAfter time.Duration) error {
	for i, reason := range tce.CancellationReasons {
		switch aws.ToString(reason.Code) {
		case "ConditionalCheckFailed":
			code := errors.CodePreconditionFailed
			if i > 0 {
				code = errors.CodeCreateFailed
			}
			return errors.NewConflictError("transaction condition failed").
				WithCode(code).WithCause(tce).WithOperation(operation, scope)
		case "ProvisionedThroughputExceeded", "ThrottlingError", "RequestLimitExceeded":
			return errors.NewThrottledError(retryAfter).WithCause(tce).WithOperation(operation, scope)
		case "TransactionConflict":
			return errors.NewConflictError("concurrent transaction on the same items").
				WithCode(errors.CodeTransactionConflict).WithCause(tce).WithOperation(operation, scope)
		}
	}
	return errors.NewUnavailableError("dynamodb").WithCause(tce).WithOperation(operation, scope)
}
