package workers

import (
	"context"
	"encoding/json"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/legalease/internal/models"
	"github.com/yoockh/legalease/internal/services"
	"github.com/yoockh/legalease/internal/utils"
)

// QuestionWorkerPool answers questions queued on a Redis stream and publishes
// progress to each user's response channel.
type QuestionWorkerPool struct {
	Redis      *redis.Client
	Questions  services.QuestionService
	Assistant  services.AssistantService
	NumWorkers int

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string

	wg        sync.WaitGroup
	mu        sync.Mutex
	userLocks map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func (p *QuestionWorkerPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Questions == nil || p.Assistant == nil {
		return errors.New("QuestionWorkerPool missing dependency: Redis/Questions/Assistant must be set")
	}
	if p.Stream == "" {
		p.Stream = "question:stream"
	}
	if p.Group == "" {
		p.Group = "question-workers"
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 4
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	// One reader fans out to workers by user, so a user's questions are
	// answered one at a time in stream order.
	lanes := make([]chan redis.XMessage, p.NumWorkers)
	for i := range lanes {
		lanes[i] = make(chan redis.XMessage, 16)
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for msg := range lanes[i] {
				if ctx.Err() != nil {
					continue // left pending for redelivery
				}
				p.HandleMessage(ctx, msg)
				_ = p.Redis.XAck(context.WithoutCancel(ctx), p.Stream, p.Group, msg.ID).Err()
			}
		}()
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() {
			for _, lane := range lanes {
				close(lane)
			}
		}()
		p.runReader(ctx, p.ConsumerPrefix+"-reader", lanes)
	}()
	return nil
}

// Wait blocks until the reader and every worker have returned after ctx is
// cancelled.
func (p *QuestionWorkerPool) Wait() { p.wg.Wait() }

func (p *QuestionWorkerPool) runReader(ctx context.Context, consumer string, lanes []chan redis.XMessage) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()

		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			p.Logger.WithError(err).WithField("consumer", consumer).Warn("stream read failed")
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				userID, _ := msg.Values["user_id"].(string)
				select {
				case lanes[LaneFor(userID, len(lanes))] <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// LaneFor maps a user to a worker index in [0, n).
func LaneFor(userID string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32() % uint32(n))
}

// lockUser serialises work for one user and returns the unlock func.
func (p *QuestionWorkerPool) lockUser(userID string) func() {
	p.mu.Lock()
	if p.userLocks == nil {
		p.userLocks = map[string]*userLock{}
	}
	l, ok := p.userLocks[userID]
	if !ok {
		l = &userLock{}
		p.userLocks[userID] = l
	}
	l.refs++
	p.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		p.mu.Lock()
		if l.refs--; l.refs == 0 {
			delete(p.userLocks, userID)
		}
		p.mu.Unlock()
	}
}

// HandleMessage processes one stream entry. It never returns an error: every
// outcome is recorded on the question and published to the user.
func (p *QuestionWorkerPool) HandleMessage(ctx context.Context, msg redis.XMessage) {
	getStr := func(k string) string {
		s, _ := msg.Values[k].(string)
		return s
	}

	questionID := getStr("question_id")
	userID := getStr("user_id")
	if questionID == "" || userID == "" {
		return
	}
	defer p.lockUser(userID)()

	log := p.Logger.WithFields(logrus.Fields{
		"redis_id":    msg.ID,
		"question_id": questionID,
		"user_id":     userID,
	})
	respCh := services.ResponseChannel(userID)
	publish := func(ev services.QuestionEvent) {
		ev.QuestionID = questionID
		b, _ := json.Marshal(ev)
		_ = p.Redis.Publish(ctx, respCh, string(b)).Err()
	}
	fail := func(err error, start time.Time) {
		_ = p.Questions.MarkAnswer(ctx, questionID, "", "", models.StatusFailed, time.Since(start).Milliseconds())
		code, message := string(utils.CodeInternal), "failed to answer question"
		var ae *utils.AppError
		if errors.As(err, &ae) {
			code, message = string(ae.Code), ae.Message
		}
		publish(services.QuestionEvent{Type: "error", Status: models.StatusFailed, Code: code, Message: message})
	}

	start := time.Now()
	q, err := p.Questions.Get(ctx, questionID)
	if err != nil {
		log.WithError(err).Warn("queued question not found")
		fail(err, start)
		return
	}
	if q.UserID != userID {
		log.Warn("question owner mismatch")
		return
	}

	turn, err := services.QuestionTurn(q)
	if err != nil {
		log.WithError(err).Warn("invalid queued question")
		fail(utils.E(utils.CodeInvalidArgument, "QuestionWorkerPool.HandleMessage", "invalid audio payload", err), start)
		return
	}

	_ = p.Questions.MarkAnswer(ctx, questionID, "", "", models.StatusProcessing, 0)
	publish(services.QuestionEvent{Type: "status", Status: models.StatusProcessing})

	seq := int64(0)
	reply, err := p.Assistant.OnUserMessage(ctx, userID, turn, func(chunk string) {
		seq++
		publish(services.QuestionEvent{Type: "llm_chunk", Seq: seq, Chunk: chunk})
	})
	if err != nil {
		log.WithError(err).Warn("question failed")
		fail(err, start)
		return
	}

	if turn.IsAudio() {
		status := models.StatusDone
		if reply.Question.Transcript == "" {
			status = models.StatusFailed
		}
		_ = p.Questions.MarkTranscript(ctx, questionID, reply.Question.Transcript, status)
	}

	procMS := time.Since(start).Milliseconds()
	_ = p.Questions.MarkAnswer(ctx, questionID, reply.SessionID, reply.Answer, models.StatusDone, procMS)
	publish(services.QuestionEvent{
		Type:             "answer",
		Status:           models.StatusDone,
		SessionID:        reply.SessionID,
		Transcript:       reply.Question.DisplayText(),
		Answer:           reply.Answer,
		ProcessingTimeMS: procMS,
	})
	log.WithField("processing_time_ms", procMS).Info("question answered")
}
