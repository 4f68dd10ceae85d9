package tracing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/structs"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
	"github.com/tebeka/atexit"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/sarchlab/tracenav/stage"
)

const (
	instructionTable = "instruction"
	eventTable       = "stage_event"
	sqliteExt        = ".sqlite3"
)

type instructionRow struct {
	ID          int64
	WorkgroupID int
	WavefrontID int
	SIMDID      int
	Asm         string
	StartTime   float64
	EndTime     float64
}

type eventRow struct {
	InstID int64
	Seq    int
	Time   float64
	Stage  int
}

// ErrEmptyTrace is returned when an overview is requested from a trace
// without any event.
var ErrEmptyTrace = errors.New("trace has no stage event")

// SQLiteTraceStore keeps an instruction trace in a SQLite database. It can
// both record a trace and serve it to the navigation engine.
type SQLiteTraceStore struct {
	*sql.DB

	filename  string
	batchSize int
	pending   []*Instruction
	written   int
	ids       map[uint64]struct{}
}

// DuplicateInstructionError is returned when an instruction ID is written
// more than once.
type DuplicateInstructionError struct {
	ID    uint64
	Index int
}

func (e *DuplicateInstructionError) Error() string {
	return fmt.Sprintf(
		"instruction %d (write index %d) is already in the trace", e.ID, e.Index)
}

// CreateSQLiteTraceStore creates a new database for recording a trace. If
// name is empty, a unique name is generated. The ".sqlite3" extension is
// appended when missing. Creating a database over an existing file is an
// error.
func CreateSQLiteTraceStore(name string) (*SQLiteTraceStore, error) {
	if name == "" {
		name = "tracenav_trace_" + xid.New().String()
	}

	filename := name
	if !strings.HasSuffix(filename, sqliteExt) {
		filename += sqliteExt
	}

	_, err := os.Stat(filename)
	if err == nil {
		return nil, fmt.Errorf("file %s already exists", filename)
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, err
	}

	s := &SQLiteTraceStore{
		DB:        db,
		filename:  filename,
		batchSize: 10000,
		ids:       make(map[uint64]struct{}),
	}

	err = s.createTables()
	if err != nil {
		db.Close()
		return nil, err
	}

	logrus.Infof("Database created for recording: %s", filename)

	atexit.Register(func() {
		err := s.Flush()
		if err != nil {
			logrus.WithError(err).Error("Failed to flush trace")
		}
	})

	return s, nil
}

// OpenSQLiteTraceStore opens an existing trace database.
func OpenSQLiteTraceStore(filename string) (*SQLiteTraceStore, error) {
	_, err := os.Stat(filename)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, err
	}

	return &SQLiteTraceStore{
		DB:        db,
		filename:  filename,
		batchSize: 10000,
		ids:       make(map[uint64]struct{}),
	}, nil
}

// Close flushes the buffered instructions and closes the database.
func (s *SQLiteTraceStore) Close() error {
	err := s.Flush()
	if err != nil {
		s.DB.Close()
		return err
	}

	return s.DB.Close()
}

// Discard drops the buffered instructions, closes the database and removes
// its file. It is used when a recording cannot be completed.
func (s *SQLiteTraceStore) Discard() error {
	s.pending = nil

	err := s.DB.Close()
	if err != nil {
		return err
	}

	return os.Remove(s.filename)
}

// Filename returns the file that backs the store.
func (s *SQLiteTraceStore) Filename() string {
	return s.filename
}

func (s *SQLiteTraceStore) createTables() error {
	stmts := []string{
		createTableSQL(instructionTable, instructionRow{}),
		createTableSQL(eventTable, eventRow{}),
		`CREATE UNIQUE INDEX instruction_id ON ` + instructionTable + ` (ID)`,
		`CREATE INDEX instruction_time ON ` + instructionTable +
			` (StartTime, EndTime)`,
		`CREATE INDEX stage_event_inst ON ` + eventTable + ` (InstID, Seq)`,
		`CREATE INDEX stage_event_time ON ` + eventTable + ` (Time)`,
	}

	for _, stmt := range stmts {
		_, err := s.Exec(stmt)
		if err != nil {
			return fmt.Errorf("failed to execute %q: %w", stmt, err)
		}
	}

	return nil
}

func createTableSQL(tableName string, sampleEntry any) string {
	fields := strings.Join(structs.Names(sampleEntry), ", \n\t")

	return `CREATE TABLE ` + tableName + ` (` + "\n\t" + fields + "\n" + `);`
}

func insertSQL(tableName string, sampleEntry any) string {
	n := structs.Names(sampleEntry)
	for i := range n {
		n[i] = "?"
	}

	return "INSERT INTO " + tableName + " VALUES (" + strings.Join(n, ", ") + ")"
}

// Write buffers an instruction. The buffer is flushed when it is full. An ID
// can only be written once.
func (s *SQLiteTraceStore) Write(inst *Instruction) error {
	if len(inst.Events) == 0 {
		return &EmptyInstructionError{ID: inst.ID, Index: s.written}
	}

	if _, dup := s.ids[inst.ID]; dup {
		return &DuplicateInstructionError{ID: inst.ID, Index: s.written}
	}

	s.ids[inst.ID] = struct{}{}
	s.pending = append(s.pending, inst)
	s.written++

	if len(s.pending) >= s.batchSize {
		return s.Flush()
	}

	return nil
}

// Flush writes all the buffered instructions in one transaction.
func (s *SQLiteTraceStore) Flush() error {
	if len(s.pending) == 0 {
		return nil
	}

	tx, err := s.Begin()
	if err != nil {
		return err
	}

	err = s.insertPending(tx)
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	err = tx.Commit()
	if err != nil {
		return err
	}

	s.pending = nil

	return nil
}

func (s *SQLiteTraceStore) insertPending(tx *sql.Tx) error {
	instStmt, err := tx.Prepare(insertSQL(instructionTable, instructionRow{}))
	if err != nil {
		return err
	}
	defer instStmt.Close()

	eventStmt, err := tx.Prepare(insertSQL(eventTable, eventRow{}))
	if err != nil {
		return err
	}
	defer eventStmt.Close()

	for _, inst := range s.pending {
		row := instructionRow{
			ID:          int64(inst.ID),
			WorkgroupID: inst.WorkgroupID,
			WavefrontID: inst.WavefrontID,
			SIMDID:      inst.SIMDID,
			Asm:         inst.Asm,
			StartTime:   inst.StartTime(),
			EndTime:     inst.EndTime(),
		}

		_, err = instStmt.Exec(structs.Values(row)...)
		if err != nil {
			return fmt.Errorf("failed to insert instruction %d: %w", inst.ID, err)
		}

		for seq, evt := range inst.Events {
			e := eventRow{
				InstID: row.ID,
				Seq:    seq,
				Time:   evt.Time,
				Stage:  int(evt.Stage),
			}

			_, err = eventStmt.Exec(structs.Values(e)...)
			if err != nil {
				return fmt.Errorf("failed to insert event of instruction %d: %w",
					inst.ID, err)
			}
		}
	}

	return nil
}

// Span returns the time covered by all the events and the number of
// instructions in the trace.
func (s *SQLiteTraceStore) Span(ctx context.Context) (TimeRange, int, error) {
	var (
		minTime, maxTime sql.NullFloat64
		numInsts         int
	)

	err := s.QueryRowContext(ctx,
		`SELECT MIN(StartTime), MAX(EndTime), COUNT(*) FROM `+instructionTable).
		Scan(&minTime, &maxTime, &numInsts)
	if err != nil {
		return TimeRange{}, 0, err
	}

	if numInsts == 0 {
		return TimeRange{}, 0, ErrEmptyTrace
	}

	return TimeRange{Start: minTime.Float64, End: maxTime.Float64}, numInsts, nil
}

// Overview splits the span of the trace into numSamples equal buckets and
// counts the events in each of them. The last bucket also counts the events
// that happen exactly at the end of the trace.
func (s *SQLiteTraceStore) Overview(
	ctx context.Context,
	numSamples int,
) ([]OverviewBucket, error) {
	if numSamples <= 0 {
		return nil, fmt.Errorf("number of samples must be positive, got %d",
			numSamples)
	}

	span, _, err := s.Span(ctx)
	if err != nil {
		return nil, err
	}

	width := span.Duration() / float64(numSamples)
	buckets := make([]OverviewBucket, numSamples)
	for i := range buckets {
		buckets[i].StartTime = span.Start + float64(i)*width
		buckets[i].EndTime = span.Start + float64(i+1)*width
	}
	buckets[numSamples-1].EndTime = span.End

	if width == 0 {
		err = s.countAllIntoLastBucket(ctx, buckets)
		return buckets, err
	}

	rows, err := s.QueryContext(ctx, `
		SELECT MIN(CAST((Time - ?) / ? AS INTEGER), ?) AS bucket, COUNT(*)
		FROM `+eventTable+`
		GROUP BY bucket`,
		span.Start, width, numSamples-1)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var index, count int

		err = rows.Scan(&index, &count)
		if err != nil {
			return nil, err
		}

		if index < 0 {
			index = 0
		}

		buckets[index].Count += count
	}

	return buckets, rows.Err()
}

func (s *SQLiteTraceStore) countAllIntoLastBucket(
	ctx context.Context,
	buckets []OverviewBucket,
) error {
	var count int

	err := s.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+eventTable).
		Scan(&count)
	if err != nil {
		return err
	}

	buckets[len(buckets)-1].Count = count

	return nil
}

// Detail returns the instructions that overlap [start, end], ordered by the
// time of their first event.
func (s *SQLiteTraceStore) Detail(
	ctx context.Context,
	start, end float64,
) ([]*Instruction, error) {
	insts, byID, err := s.queryInstructions(ctx, start, end)
	if err != nil {
		return nil, err
	}

	if len(insts) == 0 {
		return insts, nil
	}

	err = s.attachEvents(ctx, start, end, byID)
	if err != nil {
		return nil, err
	}

	return insts, nil
}

func (s *SQLiteTraceStore) queryInstructions(
	ctx context.Context,
	start, end float64,
) ([]*Instruction, map[int64]*Instruction, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT ID, WorkgroupID, WavefrontID, SIMDID, Asm
		FROM `+instructionTable+`
		WHERE EndTime >= ? AND StartTime <= ?
		ORDER BY StartTime, ID`,
		start, end)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	insts := []*Instruction{}
	byID := make(map[int64]*Instruction)

	for rows.Next() {
		var (
			id   int64
			inst = &Instruction{}
		)

		err = rows.Scan(
			&id,
			&inst.WorkgroupID,
			&inst.WavefrontID,
			&inst.SIMDID,
			&inst.Asm,
		)
		if err != nil {
			return nil, nil, err
		}

		inst.ID = uint64(id)
		insts = append(insts, inst)
		byID[id] = inst
	}

	return insts, byID, rows.Err()
}

func (s *SQLiteTraceStore) attachEvents(
	ctx context.Context,
	start, end float64,
	byID map[int64]*Instruction,
) error {
	rows, err := s.QueryContext(ctx, `
		SELECT e.InstID, e.Time, e.Stage
		FROM `+eventTable+` e
		JOIN `+instructionTable+` i ON e.InstID = i.ID
		WHERE i.EndTime >= ? AND i.StartTime <= ?
		ORDER BY e.InstID, e.Seq`,
		start, end)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			instID int64
			evt    = &StageEvent{}
			code   int
		)

		err = rows.Scan(&instID, &evt.Time, &code)
		if err != nil {
			return err
		}

		evt.Stage = stage.Code(code)

		inst, ok := byID[instID]
		if !ok {
			continue
		}

		inst.Events = append(inst.Events, evt)
	}

	return rows.Err()
}
