package store

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/0xphen/kaskade/internal/batch"
	"github.com/0xphen/kaskade/internal/kerrors"
	"github.com/0xphen/kaskade/internal/planner"
	"github.com/0xphen/kaskade/internal/session"
)

// GormRepository is the SQLite-backed Repository implementation.
type GormRepository struct {
	db  *gorm.DB
	log zerolog.Logger
}

// Open connects to dsn (a GORM SQLite DSN, e.g. "kaskade_dev.db") and
// migrates the sessions/batches/batch_items schema.
func Open(dsn string, log zerolog.Logger) (*GormRepository, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.AutoMigrate(&SessionRecord{}, &BatchRecord{}, &BatchItemRecord{}); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &GormRepository{db: db, log: log}, nil
}

// Close releases the underlying connection pool.
func (r *GormRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// FetchPage implements Repository.FetchPage, skipping poison rows with a
// warning instead of failing the page (spec §4.4).
func (r *GormRepository) FetchPage(limit, offset int) ([]session.Session, error) {
	var records []SessionRecord
	err := r.db.
		Where("active = ? AND remaining_bid > 0 AND remaining_chunks > 0", true).
		Order("session_id").
		Limit(limit).
		Offset(offset).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("fetch page limit=%d offset=%d: %w", limit, offset, err)
	}

	sessions := make([]session.Session, 0, len(records))
	for _, rec := range records {
		s, ok := rec.toDomain()
		if !ok {
			r.log.Warn().Str("session_id", rec.SessionID).Msg("skipping poisoned session row")
			continue
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

// FetchByID implements Repository.FetchByID.
func (r *GormRepository) FetchByID(id uuid.UUID) (session.Session, bool, error) {
	var rec SessionRecord
	err := r.db.Where("session_id = ?", id.String()).First(&rec).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return session.Session{}, false, nil
		}
		return session.Session{}, false, fmt.Errorf("fetch by id %s: %w", id, err)
	}
	s, ok := rec.toDomain()
	if !ok {
		return session.Session{}, false, fmt.Errorf("fetch by id %s: %w", id, kerrors.ErrPoisonRow)
	}
	return s, true, nil
}

// PersistFairness implements Repository.PersistFairness, updating only the
// DRR fields.
func (r *GormRepository) PersistFairness(id uuid.UUID, deficit int64, lastServedMs uint64) error {
	lastServed, err := checkedInt64(int64(lastServedMs))
	if err != nil {
		return fmt.Errorf("persist fairness %s: %w", id, err)
	}
	err = r.db.Model(&SessionRecord{}).
		Where("session_id = ?", id.String()).
		Updates(map[string]any{"deficit": deficit, "last_served_ms": lastServed}).Error
	if err != nil {
		return fmt.Errorf("persist fairness %s: %w", id, err)
	}
	return nil
}

// ReserveExecution implements the CAS reservation protocol of spec §4.8.
func (r *GormRepository) ReserveExecution(pairID string, nowMs uint64, allocations []planner.Allocation) (*batch.Batch, error) {
	if len(allocations) == 0 {
		return nil, nil
	}

	var result *batch.Batch

	err := r.db.Transaction(func(tx *gorm.DB) error {
		batchID := uuid.New()
		var items []batch.Item

		for _, alloc := range allocations {
			sumChunks := int64(0)
			for _, c := range alloc.Chunks {
				sumChunks += c
			}
			numChunks := int64(len(alloc.Chunks))

			res := tx.Exec(`
				UPDATE sessions
				SET in_flight_bid = in_flight_bid + ?,
				    in_flight_chunks = in_flight_chunks + ?,
				    has_pending_batch = true
				WHERE session_id = ? AND pair_id = ? AND active = true AND has_pending_batch = false
				  AND (remaining_bid - in_flight_bid) >= ?
				  AND (remaining_chunks - in_flight_chunks) >= ?
			`, sumChunks, numChunks, alloc.SessionID.String(), pairID, sumChunks, numChunks)
			if res.Error != nil {
				return fmt.Errorf("cas update session %s: %w", alloc.SessionID, res.Error)
			}
			if res.RowsAffected != 1 {
				continue // CAS miss: another writer won the race, skip silently
			}

			for _, chunkBid := range alloc.Chunks {
				items = append(items, batch.Item{
					ID:        uuid.New(),
					BatchID:   batchID,
					SessionID: alloc.SessionID,
					Bid:       chunkBid,
					Status:    batch.Pending,
				})
			}
		}

		if len(items) == 0 {
			return nil // nothing succeeded: no row was updated and no batch is persisted
		}

		batchRec := BatchRecord{
			BatchID:   batchID.String(),
			PairID:    pairID,
			CreatedMs: int64(nowMs),
			Status:    string(batch.Reserved),
		}
		if err := tx.Create(&batchRec).Error; err != nil {
			return fmt.Errorf("insert batch: %w", err)
		}

		itemRecs := make([]BatchItemRecord, 0, len(items))
		for _, it := range items {
			itemRecs = append(itemRecs, fromDomainItem(it))
		}
		if err := tx.Create(&itemRecs).Error; err != nil {
			return fmt.Errorf("insert batch items: %w", err)
		}

		result = &batch.Batch{
			ID:        batchID,
			PairID:    pairID,
			CreatedMs: nowMs,
			Status:    batch.Reserved,
			Items:     items,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reserve execution pair=%s: %w", pairID, err)
	}
	return result, nil
}

// CommitBatch implements the transactional, idempotent commit protocol of
// spec §4.10.
func (r *GormRepository) CommitBatch(b batch.Batch, results []UserResult, nowMs uint64) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var rec BatchRecord
		if err := tx.Where("batch_id = ?", b.ID.String()).First(&rec).Error; err != nil {
			return fmt.Errorf("load batch %s: %w", b.ID, err)
		}

		switch batch.Status(rec.Status) {
		case batch.Committed, batch.Aborted:
			return nil // already finalized: idempotent no-op
		case batch.Reserved:
			// proceed
		default:
			return fmt.Errorf("commit batch %s: %w", b.ID, kerrors.NewInvariant("commit_batch", "unexpected batch status "+rec.Status))
		}

		touchedSessions := make(map[string]bool)

		for _, ur := range results {
			touchedSessions[ur.SessionID.String()] = true

			if ur.CooldownMs > 0 {
				if err := applyCooldown(tx, ur.SessionID, ur.CooldownMs, nowMs); err != nil {
					return err
				}
			}

			for _, cr := range ur.Chunks {
				if err := applyChunkResult(tx, cr, nowMs); err != nil {
					return err
				}
			}
		}

		for sessID := range touchedSessions {
			if err := tx.Model(&SessionRecord{}).Where("session_id = ?", sessID).
				Update("has_pending_batch", false).Error; err != nil {
				return fmt.Errorf("release pending lock %s: %w", sessID, err)
			}
		}

		if err := tx.Model(&BatchRecord{}).Where("batch_id = ?", b.ID.String()).
			Update("status", string(batch.Committed)).Error; err != nil {
			return fmt.Errorf("finalize batch %s: %w", b.ID, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("commit batch %s: %w", b.ID, err)
	}
	return nil
}

func applyCooldown(tx *gorm.DB, sessionID uuid.UUID, cooldownMs, nowMs uint64) error {
	var rec SessionRecord
	if err := tx.Where("session_id = ?", sessionID.String()).First(&rec).Error; err != nil {
		return fmt.Errorf("load session for cooldown %s: %w", sessionID, err)
	}
	candidate := int64(nowMs + cooldownMs)
	if candidate > rec.CooldownUntilMs {
		if err := tx.Model(&SessionRecord{}).Where("session_id = ?", sessionID.String()).
			Update("cooldown_until_ms", candidate).Error; err != nil {
			return fmt.Errorf("apply cooldown %s: %w", sessionID, err)
		}
	}
	return nil
}

func applyChunkResult(tx *gorm.DB, cr ChunkResult, nowMs uint64) error {
	var item BatchItemRecord
	if err := tx.Where("chunk_id = ?", cr.ChunkID.String()).First(&item).Error; err != nil {
		return fmt.Errorf("load chunk %s: %w", cr.ChunkID, err)
	}
	if batch.ItemStatus(item.Status) != batch.Pending {
		return nil // per-chunk idempotency: already applied
	}

	updates := map[string]any{"status": string(cr.Status)}
	if cr.TxID != nil {
		updates["tx_id"] = *cr.TxID
	}
	if cr.Error != nil {
		updates["error"] = *cr.Error
	}

	var sessionDelta string
	switch cr.Status {
	case batch.Success:
		sessionDelta = `
			remaining_bid = remaining_bid - ?,
			remaining_chunks = remaining_chunks - 1,
			in_flight_bid = in_flight_bid - ?,
			in_flight_chunks = in_flight_chunks - 1,
			last_served_ms = ?
		`
	case batch.Failed, batch.Skipped:
		sessionDelta = `
			in_flight_bid = in_flight_bid - ?,
			in_flight_chunks = in_flight_chunks - 1
		`
	default:
		return fmt.Errorf("apply chunk %s: %w", cr.ChunkID, kerrors.NewInvariant("commit_batch", "unexpected chunk result status"))
	}

	if err := tx.Model(&BatchItemRecord{}).Where("chunk_id = ?", cr.ChunkID.String()).Updates(updates).Error; err != nil {
		return fmt.Errorf("update chunk %s: %w", cr.ChunkID, err)
	}

	if cr.Status == batch.Success {
		if err := tx.Exec("UPDATE sessions SET "+sessionDelta+" WHERE session_id = ?",
			item.Bid, item.Bid, nowMs, item.SessionID).Error; err != nil {
			return fmt.Errorf("apply success accounting %s: %w", cr.ChunkID, err)
		}
	} else {
		if err := tx.Exec("UPDATE sessions SET "+sessionDelta+" WHERE session_id = ?",
			item.Bid, item.SessionID).Error; err != nil {
			return fmt.Errorf("apply unwind accounting %s: %w", cr.ChunkID, err)
		}
	}
	return nil
}

// StaleReserved is one RESERVED batch older than a reconciliation
// threshold, reported by the operator diagnostic tool.
type StaleReserved struct {
	BatchID      uuid.UUID
	PairID       string
	CreatedMs    uint64
	AgeMs        uint64
	PendingItems int
}

// ListStaleReserved reports every RESERVED batch whose age exceeds
// olderThanMs, read-only — a diagnostic companion to RecoverUncommitted,
// not a replacement for it.
func (r *GormRepository) ListStaleReserved(nowMs, olderThanMs uint64) ([]StaleReserved, error) {
	var records []BatchRecord
	cutoff := int64(nowMs) - int64(olderThanMs)
	if err := r.db.Where("status = ? AND created_ms < ?", string(batch.Reserved), cutoff).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list stale reserved: %w", err)
	}

	out := make([]StaleReserved, 0, len(records))
	for _, rec := range records {
		id, err := parseUUID(rec.BatchID)
		if err != nil {
			r.log.Warn().Str("batch_id", rec.BatchID).Msg("skipping poisoned batch row")
			continue
		}
		var pending int64
		if err := r.db.Model(&BatchItemRecord{}).
			Where("batch_id = ? AND status = ?", rec.BatchID, string(batch.Pending)).
			Count(&pending).Error; err != nil {
			return nil, fmt.Errorf("count pending items for batch %s: %w", rec.BatchID, err)
		}
		out = append(out, StaleReserved{
			BatchID:      id,
			PairID:       rec.PairID,
			CreatedMs:    uint64(rec.CreatedMs),
			AgeMs:        nowMs - uint64(rec.CreatedMs),
			PendingItems: int(pending),
		})
	}
	return out, nil
}

// RecoverUncommitted implements spec §4.11, run once before accepting
// traffic.
func (r *GormRepository) RecoverUncommitted() error {
	var reservedBatches []BatchRecord
	if err := r.db.Where("status = ?", string(batch.Reserved)).Find(&reservedBatches).Error; err != nil {
		return fmt.Errorf("recover uncommitted: list reserved batches: %w", err)
	}

	for _, rec := range reservedBatches {
		if err := r.recoverOne(rec); err != nil {
			return fmt.Errorf("recover uncommitted: batch %s: %w", rec.BatchID, err)
		}
	}
	return nil
}

func (r *GormRepository) recoverOne(rec BatchRecord) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var items []BatchItemRecord
		if err := tx.Where("batch_id = ? AND status = ?", rec.BatchID, string(batch.Pending)).Find(&items).Error; err != nil {
			return fmt.Errorf("list pending items: %w", err)
		}

		touched := make(map[string]bool)
		for _, it := range items {
			touched[it.SessionID] = true
			if err := tx.Exec(`
				UPDATE sessions
				SET in_flight_bid = in_flight_bid - ?, in_flight_chunks = in_flight_chunks - 1
				WHERE session_id = ?
			`, it.Bid, it.SessionID).Error; err != nil {
				return fmt.Errorf("unwind in-flight for session %s: %w", it.SessionID, err)
			}
			if err := tx.Model(&BatchItemRecord{}).Where("chunk_id = ?", it.ChunkID).
				Updates(map[string]any{"status": string(batch.Skipped), "error": batch.ReasonRecovered}).Error; err != nil {
				return fmt.Errorf("mark chunk recovered %s: %w", it.ChunkID, err)
			}
		}

		for sessID := range touched {
			if err := tx.Model(&SessionRecord{}).Where("session_id = ?", sessID).
				Update("has_pending_batch", false).Error; err != nil {
				return fmt.Errorf("clear pending lock %s: %w", sessID, err)
			}
		}

		if err := tx.Model(&BatchRecord{}).Where("batch_id = ?", rec.BatchID).
			Updates(map[string]any{"status": string(batch.Aborted), "reason": "recovered at startup"}).Error; err != nil {
			return fmt.Errorf("abort batch: %w", err)
		}
		return nil
	})
}
