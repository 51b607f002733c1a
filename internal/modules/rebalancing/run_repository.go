package rebalancing

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/sectorpilot/internal/database"
	"github.com/aristath/sectorpilot/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// runColumns is the column list for rebalance_runs, in scanRun order
const runColumns = `id, created_at, trigger, constraints_json, drift_before, drift_after_est, total_value_cr`

// suggestionColumns is the column list for rebalance_suggestions, in scanSuggestion order
const suggestionColumns = `id, run_id, ordinal, action, ticker, sector_id, quantity, est_value_cr, rationale,
	post_trade_weight, post_trade_drift, binding_constraint, status, approved_at, locked_at`

// RunRepository persists rebalance runs and their suggestions
// Database: ledger.db (rebalance_runs, rebalance_suggestions tables)
type RunRepository struct {
	ledgerDB *sql.DB
	log      zerolog.Logger
}

// NewRunRepository creates a new run repository
func NewRunRepository(ledgerDB *sql.DB, log zerolog.Logger) *RunRepository {
	return &RunRepository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "rebalance_run").Logger(),
	}
}

// SaveRun writes the run, its input snapshot and every suggestion in one
// transaction. A new uuid is assigned when run.ID is empty; suggestion IDs,
// ordinals and statuses are filled in on success.
func (r *RunRepository) SaveRun(run *Run, snapshot *Snapshot) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	constraintsJSON, err := json.Marshal(run.Constraints)
	if err != nil {
		return fmt.Errorf("failed to marshal constraints: %w", err)
	}

	var snapshotBlob []byte
	if snapshot != nil {
		snapshotBlob, err = msgpack.Marshal(snapshot)
		if err != nil {
			return fmt.Errorf("failed to encode input snapshot: %w", err)
		}
	}

	err = database.WithTransaction(r.ledgerDB, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO rebalance_runs
			(id, created_at, trigger, constraints_json, input_snapshot, drift_before, drift_after_est, total_value_cr)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, run.ID, run.CreatedAt.Unix(), run.Trigger, string(constraintsJSON), snapshotBlob,
			run.DriftBefore, run.DriftAfterEst, run.TotalValueCr)
		if err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}

		stmt, err := tx.Prepare(`
			INSERT INTO rebalance_suggestions
			(run_id, ordinal, action, ticker, sector_id, quantity, est_value_cr, rationale,
			 post_trade_weight, post_trade_drift, binding_constraint, status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare suggestion insert: %w", err)
		}
		defer stmt.Close()

		for i := range run.Suggestions {
			s := &run.Suggestions[i]
			s.RunID = run.ID
			s.Ordinal = i + 1
			s.Status = domain.StatusPending

			result, err := stmt.Exec(run.ID, s.Ordinal, string(s.Action), s.Ticker, s.SectorID, s.Quantity,
				s.EstValueCr, s.Rationale, s.PostTradeWeight, s.PostTradeDrift,
				nullString(s.BindingConstraint), string(s.Status))
			if err != nil {
				return fmt.Errorf("failed to insert suggestion %d: %w", s.Ordinal, err)
			}
			if s.ID, err = result.LastInsertId(); err != nil {
				return fmt.Errorf("failed to read suggestion id: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.log.Info().
		Str("run_id", run.ID).
		Str("trigger", run.Trigger).
		Int("suggestions", len(run.Suggestions)).
		Msg("Rebalance run saved")

	return nil
}

// GetRun retrieves a run with its suggestions in emission order
func (r *RunRepository) GetRun(runID string) (*Run, error) {
	row := r.ledgerDB.QueryRow("SELECT "+runColumns+" FROM rebalance_runs WHERE id = ?", runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", runID, err)
	}

	if run.Suggestions, err = r.getSuggestions(runID); err != nil {
		return nil, err
	}
	return run, nil
}

// GetLatestRun retrieves the most recently created run.
// Returns ErrNoRuns when the ledger is empty.
func (r *RunRepository) GetLatestRun() (*Run, error) {
	var runID string
	err := r.ledgerDB.QueryRow(`
		SELECT id FROM rebalance_runs
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`).Scan(&runID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRuns
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	return r.GetRun(runID)
}

// GetSnapshot decodes the generator inputs stored with a run.
// Runs saved without a snapshot return nil.
func (r *RunRepository) GetSnapshot(runID string) (*Snapshot, error) {
	var blob []byte
	err := r.ledgerDB.QueryRow("SELECT input_snapshot FROM rebalance_runs WHERE id = ?", runID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot for run %s: %w", runID, err)
	}
	if len(blob) == 0 {
		return nil, nil
	}

	var snapshot Snapshot
	if err := msgpack.Unmarshal(blob, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot for run %s: %w", runID, err)
	}
	return &snapshot, nil
}

// SetSuggestionStatus moves a suggestion to a new status and stamps the
// matching timestamp. It returns the suggestion as stored and whether anything
// changed.
func (r *RunRepository) SetSuggestionStatus(
	runID string,
	suggestionID int64,
	status domain.SuggestionStatus,
	at time.Time,
) (*RunSuggestion, bool, error) {
	var result *RunSuggestion
	changed := false

	err := database.WithTransaction(r.ledgerDB, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRow("SELECT COUNT(*) FROM rebalance_runs WHERE id = ?", runID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check run: %w", err)
		}
		if exists == 0 {
			return ErrRunNotFound
		}

		current, err := scanSuggestion(tx.QueryRow(
			"SELECT "+suggestionColumns+" FROM rebalance_suggestions WHERE run_id = ? AND id = ?",
			runID, suggestionID,
		))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrSuggestionNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get suggestion: %w", err)
		}

		noop, err := checkTransition(current.Status, status)
		if err != nil {
			return fmt.Errorf("%w: %s -> %s", err, current.Status, status)
		}
		if noop {
			result = current
			return nil
		}

		column := "approved_at"
		if status == domain.StatusLocked {
			column = "locked_at"
		}
		if _, err := tx.Exec(
			"UPDATE rebalance_suggestions SET status = ?, "+column+" = ? WHERE id = ?",
			string(status), at.Unix(), suggestionID,
		); err != nil {
			return fmt.Errorf("failed to update suggestion status: %w", err)
		}

		stamped := time.Unix(at.Unix(), 0).UTC()
		current.Status = status
		if status == domain.StatusLocked {
			current.LockedAt = &stamped
		} else {
			current.ApprovedAt = &stamped
		}
		result = current
		changed = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if changed {
		r.log.Info().
			Str("run_id", runID).
			Int64("suggestion_id", suggestionID).
			Str("status", string(status)).
			Msg("Suggestion status updated")
	}

	return result, changed, nil
}

func (r *RunRepository) getSuggestions(runID string) ([]RunSuggestion, error) {
	rows, err := r.ledgerDB.Query(
		"SELECT "+suggestionColumns+" FROM rebalance_suggestions WHERE run_id = ? ORDER BY ordinal ASC",
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query suggestions: %w", err)
	}
	defer rows.Close()

	suggestions := make([]RunSuggestion, 0)
	for rows.Next() {
		s, err := scanSuggestion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan suggestion: %w", err)
		}
		suggestions = append(suggestions, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating suggestions: %w", err)
	}

	return suggestions, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var createdAt int64
	var constraintsJSON string

	if err := row.Scan(&run.ID, &createdAt, &run.Trigger, &constraintsJSON,
		&run.DriftBefore, &run.DriftAfterEst, &run.TotalValueCr); err != nil {
		return nil, err
	}

	run.CreatedAt = time.Unix(createdAt, 0).UTC()
	if err := json.Unmarshal([]byte(constraintsJSON), &run.Constraints); err != nil {
		return nil, fmt.Errorf("failed to parse constraints: %w", err)
	}
	return &run, nil
}

func scanSuggestion(row rowScanner) (*RunSuggestion, error) {
	var s RunSuggestion
	var action, status string
	var binding sql.NullString
	var approvedAt, lockedAt sql.NullInt64

	if err := row.Scan(&s.ID, &s.RunID, &s.Ordinal, &action, &s.Ticker, &s.SectorID, &s.Quantity,
		&s.EstValueCr, &s.Rationale, &s.PostTradeWeight, &s.PostTradeDrift, &binding,
		&status, &approvedAt, &lockedAt); err != nil {
		return nil, err
	}

	s.Action = domain.TradeAction(action)
	s.Status = domain.SuggestionStatus(status)
	if binding.Valid {
		s.BindingConstraint = binding.String
	}
	if approvedAt.Valid {
		t := time.Unix(approvedAt.Int64, 0).UTC()
		s.ApprovedAt = &t
	}
	if lockedAt.Valid {
		t := time.Unix(lockedAt.Int64, 0).UTC()
		s.LockedAt = &t
	}
	return &s, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
