// Package worker serves LingoCast jobs over NATS request-reply and announces
// published episodes as events.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/book-expert/lingocast/internal/core"
	"github.com/book-expert/lingocast/internal/pipeline"
	"github.com/book-expert/logger"
	"github.com/nats-io/nats.go"
)

// Reply headers.
const (
	HeaderJobID  = "Lingocast-Job-Id"
	HeaderStatus = "Lingocast-Status"
	HeaderState  = "Lingocast-State"
)

// JobRunner runs one job to a terminal state.
type JobRunner interface {
	Run(ctx context.Context, req core.JobRequest) pipeline.Outcome
}

// NatsWorker listens for job requests on a NATS subject and answers each with
// the job result.
type NatsWorker struct {
	natsConnection *nats.Conn
	subject        string
	runner         JobRunner
	jobTimeout     time.Duration
	log            *logger.Logger
}

// NewNatsWorker creates a new instance of a NATS worker. A zero jobTimeout
// leaves jobs unbounded apart from the synthesis timeout.
func NewNatsWorker(
	natsConnection *nats.Conn,
	subject string,
	runner JobRunner,
	jobTimeout time.Duration,
	log *logger.Logger,
) *NatsWorker {
	return &NatsWorker{
		natsConnection: natsConnection,
		subject:        subject,
		runner:         runner,
		jobTimeout:     jobTimeout,
		log:            log,
	}
}

// Run starts the worker and begins listening for messages.
func (w *NatsWorker) Run(ctx context.Context) error {
	sub, err := w.natsConnection.Subscribe(w.subject, w.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.subject, err)
	}

	w.log.Info("Listening for jobs on NATS subject %s", w.subject)

	<-ctx.Done()

	drainErr := sub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain subscription: %w", drainErr)
	}

	return nil
}

func (w *NatsWorker) handleMessage(msg *nats.Msg) {
	ctx := context.Background()

	if w.jobTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, w.jobTimeout)
		defer cancel()
	}

	req, err := parseRequest(msg)
	if err != nil {
		w.log.Error("Failed to parse job request: %v", err)
		w.reply(msg, "", "rejected", 400, core.JobResult{Error: err.Error()})

		return
	}

	outcome := w.runner.Run(ctx, req.WithDefaults())

	w.reply(msg, outcome.JobID, string(outcome.State), outcome.StatusCode(), outcome.Result)
}

func (w *NatsWorker) reply(msg *nats.Msg, jobID, state string, status int, result core.JobResult) {
	if msg.Reply == "" {
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		w.log.Error("Failed to marshal job result: %v", err)

		return
	}

	response := nats.NewMsg(msg.Reply)
	response.Data = data
	response.Header.Set(HeaderStatus, strconv.Itoa(status))
	response.Header.Set(HeaderState, state)

	if jobID != "" {
		response.Header.Set(HeaderJobID, jobID)
	}

	err = msg.RespondMsg(response)
	if err != nil {
		w.log.Error("Failed to publish reply for job %s: %v", jobID, err)
	}
}

func parseRequest(msg *nats.Msg) (core.JobRequest, error) {
	var req core.JobRequest

	err := json.Unmarshal(msg.Data, &req)
	if err != nil {
		return core.JobRequest{}, fmt.Errorf("%w: failed to unmarshal request: %w", core.ErrInvalidRequest, err)
	}

	return req, nil
}
