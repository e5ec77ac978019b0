// cmd/chronicler/main.go is an asynchronous chronicler service that pops seance
// events from a Redis queue and persists them to a PostgreSQL database.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/lunaveil/seance/internal/cache"
	"github.com/lunaveil/seance/internal/database"
)

// ChroniclerService encapsulates the Redis + DB logic for capturing room
// transcripts and archiving completed seance cycles.
type ChroniclerService struct {
	redisClient *redis.Client
	batchSize   int
	flushDelay  time.Duration

	batchMu  sync.Mutex
	batch    []cache.SeanceEventRecord
	ctx      context.Context
	cancelFn context.CancelFunc
}

// NewChroniclerService constructs a ChroniclerService instance from environment variables or defaults.
func NewChroniclerService() *ChroniclerService {
	batchSize := getEnvInt("CHRONICLER_BATCH_SIZE", 20)
	flushMs := getEnvInt("CHRONICLER_FLUSH_MS", 500)

	redisAddr := getEnv("REDIS_ADDR", "localhost:6379")
	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	ctx, cancel := context.WithCancel(context.Background())
	return &ChroniclerService{
		redisClient: rdb,
		batchSize:   batchSize,
		flushDelay:  time.Duration(flushMs) * time.Millisecond,
		batch:       make([]cache.SeanceEventRecord, 0, batchSize),
		ctx:         ctx,
		cancelFn:    cancel,
	}
}

// Run connects to the database and starts the queue-reading loop.
func (cs *ChroniclerService) Run() {
	database.ConnectDB()

	go cs.readRedisLoop()

	log.Println("seance-chronicler service started.")
	<-cs.ctx.Done()
	log.Println("seance-chronicler shutting down.")
}

// readRedisLoop continuously uses BLPop to retrieve events from the Redis queue.
func (cs *ChroniclerService) readRedisLoop() {
	ticker := time.NewTicker(cs.flushDelay)
	defer ticker.Stop()

	queueName := getEnv("CHRONICLER_QUEUE_NAME", cache.DefaultQueueName)

	for {
		select {
		case <-cs.ctx.Done():
			return

		case <-ticker.C:
			cs.flushBatchToDB()

		default:
			// Use BLPop with a 3-second timeout so that context cancellation is handled.
			res, err := cs.redisClient.BLPop(cs.ctx, 3*time.Second, queueName).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				log.Printf("[ERROR] BLPop: %v\n", err)
				continue
			}
			if len(res) < 2 {
				continue
			}

			// res[0] is the queue name and res[1] the payload.
			var record cache.SeanceEventRecord
			if err := json.Unmarshal([]byte(res[1]), &record); err != nil {
				log.Printf("invalid seance event record: %v\n", err)
				continue
			}

			cs.appendToBatch(record)
		}
	}
}

// appendToBatch adds a record to the in-memory batch and flushes if the threshold is reached.
func (cs *ChroniclerService) appendToBatch(record cache.SeanceEventRecord) {
	cs.batchMu.Lock()
	defer cs.batchMu.Unlock()

	cs.batch = append(cs.batch, record)
	if len(cs.batch) >= cs.batchSize {
		cs.flushBatchLocked()
	}
}

// flushBatchToDB flushes the current batch to the database in a single transaction.
func (cs *ChroniclerService) flushBatchToDB() {
	cs.batchMu.Lock()
	defer cs.batchMu.Unlock()
	cs.flushBatchLocked()
}

func (cs *ChroniclerService) flushBatchLocked() {
	if len(cs.batch) == 0 {
		return
	}
	batchCopy := make([]cache.SeanceEventRecord, len(cs.batch))
	copy(batchCopy, cs.batch)
	cs.batch = cs.batch[:0]

	ctx := context.Background()
	err := beginTxFunc(ctx, database.DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range batchCopy {
			if err := insertSeanceEventTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insertSeanceEventTx: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("[ERROR] flushBatchToDB: %v\n", err)
	} else {
		log.Printf("Flushed %d events to DB.\n", len(batchCopy))
	}
}

// insertSeanceEventTx inserts a single event into the room_events transcript
// table. A session_complete event also archives the cycle into seances.
func insertSeanceEventTx(ctx context.Context, tx pgx.Tx, rec cache.SeanceEventRecord) error {
	eventInsertQ := `
		INSERT INTO room_events (
			room_id, event_index, actor_uid, event_type, payload, occurred_at
		) VALUES ($1, $2, $3, $4, $5, to_timestamp($6 / 1000.0))
	`
	jsonPayload, err := json.Marshal(rec.Payload)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, eventInsertQ,
		rec.RoomID, rec.EventIndex, rec.ActorUID, rec.EventType, jsonPayload, rec.Timestamp,
	)
	if err != nil {
		return err
	}

	if rec.EventType == "session_complete" {
		seance := seanceFromEvent(rec)
		if err := database.InsertSeanceTx(ctx, tx, &seance); err != nil {
			return err
		}
	}
	return nil
}

// seanceFromEvent projects a session_complete transcript event onto the
// archive row the chronicle keeps per completed cycle.
func seanceFromEvent(rec cache.SeanceEventRecord) database.SeanceRecord {
	roomName, _ := rec.Payload["room_name"].(string)
	question, _ := rec.Payload["question"].(string)
	answer, _ := rec.Payload["answer"].(string)
	farewell, _ := rec.Payload["farewell"].(bool)
	participants := 0
	if v, ok := rec.Payload["participants"].(float64); ok {
		participants = int(v)
	}
	return database.SeanceRecord{
		RoomID:       rec.RoomID,
		RoomName:     roomName,
		Question:     question,
		Answer:       answer,
		Participants: participants,
		Farewell:     farewell,
		CompletedAt:  time.UnixMilli(rec.Timestamp),
	}
}

// beginTxFunc is a helper that starts a transaction using the provided pool,
// calls the function f with the transaction, and commits or rollbacks as needed.
func beginTxFunc(ctx context.Context, pool *pgxpool.Pool, txOptions pgx.TxOptions, f func(tx pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, txOptions)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := f(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func main() {
	cs := NewChroniclerService()
	cs.Run()
}
