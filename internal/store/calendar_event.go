package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/bywater/internal/model"
)

type CalendarEventStore struct {
	db *sql.DB
}

func NewCalendarEventStore(db *sql.DB) *CalendarEventStore {
	return &CalendarEventStore{db: db}
}

// SeriesParams carries every writable field of a series. Members is the full
// desired membership set; absent members are removed on update.
type SeriesParams struct {
	Title         string
	Description   string
	Location      string
	Color         string
	StartTime     time.Time
	EndTime       time.Time
	AllDay        bool
	RRule         string
	RecurrenceEnd *time.Time
	Members       []model.EventMember
}

// ExceptionParams carries the per-occurrence override fields. Nil means "keep
// the series value". IsDeleted suppresses the occurrence entirely; override
// fields are cleared when it is set.
type ExceptionParams struct {
	IsDeleted   bool
	Title       *string
	Description *string
	Location    *string
	StartTime   *time.Time
	EndTime     *time.Time
	AllDay      *bool
}

const eventCols = `id, title, description, location, color, start_time, end_time, all_day,
	rrule, recurrence_end, parent_event_id, created_at, updated_at`

func scanEvent(scanner interface{ Scan(...any) error }) (*model.CalendarEvent, error) {
	var e model.CalendarEvent
	var allDay int
	var rule sql.NullString
	var recurrenceEnd sql.NullTime
	var parentID sql.NullInt64

	err := scanner.Scan(&e.ID, &e.Title, &e.Description, &e.Location, &e.Color,
		&e.StartTime, &e.EndTime, &allDay, &rule, &recurrenceEnd, &parentID,
		&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}

	e.AllDay = allDay != 0
	if rule.Valid {
		e.RRule = rule.String
	}
	if recurrenceEnd.Valid {
		t := recurrenceEnd.Time.UTC()
		e.RecurrenceEnd = &t
	}
	if parentID.Valid {
		e.ParentEventID = &parentID.Int64
	}
	e.StartTime = e.StartTime.UTC()
	e.EndTime = e.EndTime.UTC()
	return &e, nil
}

func nullRule(rule string) sql.NullString {
	return sql.NullString{String: rule, Valid: rule != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Create inserts a series and its members atomically.
func (s *CalendarEventStore) Create(ctx context.Context, p SeriesParams) (*model.CalendarEvent, error) {
	return s.create(ctx, p, nil)
}

func (s *CalendarEventStore) create(ctx context.Context, p SeriesParams, parentID *int64) (*model.CalendarEvent, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	id, err := insertSeries(ctx, tx, p, parentID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(ctx, id)
}

func insertSeries(ctx context.Context, tx *sql.Tx, p SeriesParams, parentID *int64) (int64, error) {
	var parent sql.NullInt64
	if parentID != nil {
		parent = sql.NullInt64{Int64: *parentID, Valid: true}
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO calendar_events
		 (title, description, location, color, start_time, end_time, all_day, rrule, recurrence_end, parent_event_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Title, p.Description, p.Location, p.Color,
		p.StartTime.UTC(), p.EndTime.UTC(), boolInt(p.AllDay),
		nullRule(p.RRule), nullTime(p.RecurrenceEnd), parent,
	)
	if err != nil {
		return 0, fmt.Errorf("insert calendar event: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	for _, m := range p.Members {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO calendar_event_members (event_id, member_id, role) VALUES (?, ?, ?)`,
			id, m.MemberID, string(m.Role),
		); err != nil {
			return 0, fmt.Errorf("insert event member: %w", err)
		}
	}
	return id, nil
}

// GetByID returns the series with its members, or nil if it does not exist.
func (s *CalendarEventStore) GetByID(ctx context.Context, id int64) (*model.CalendarEvent, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+eventCols+` FROM calendar_events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query calendar event: %w", err)
	}

	members, err := s.ListMembers(ctx, id)
	if err != nil {
		return nil, err
	}
	e.Members = members
	return e, nil
}

// ListOverlapping returns every series that could produce an occurrence inside
// [start, end). For recurring series the end of the window of possible
// occurrences is the recurrence end, not the first occurrence's end.
func (s *CalendarEventStore) ListOverlapping(ctx context.Context, start, end time.Time) ([]model.CalendarEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventCols+` FROM calendar_events
		 WHERE start_time < ?
		   AND ((rrule IS NULL AND end_time > ?)
		     OR (rrule IS NOT NULL AND (recurrence_end IS NULL OR recurrence_end > ?)))
		 ORDER BY start_time`,
		end.UTC(), start.UTC(), start.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("query calendar events: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

// ListInvolving returns the series in the window where the member participates
// with the involved role. Aware membership never contributes busy time.
func (s *CalendarEventStore) ListInvolving(ctx context.Context, memberID int64, start, end time.Time) ([]model.CalendarEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT e.id, e.title, e.description, e.location, e.color, e.start_time, e.end_time, e.all_day,
		        e.rrule, e.recurrence_end, e.parent_event_id, e.created_at, e.updated_at
		 FROM calendar_events e
		 JOIN calendar_event_members m ON m.event_id = e.id
		 WHERE m.member_id = ? AND m.role = 'involved'
		   AND e.start_time < ?
		   AND ((e.rrule IS NULL AND e.end_time > ?)
		     OR (e.rrule IS NOT NULL AND (e.recurrence_end IS NULL OR e.recurrence_end > ?)))
		 ORDER BY e.start_time`,
		memberID, end.UTC(), start.UTC(), start.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("query involved events: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

func collectEvents(rows *sql.Rows) ([]model.CalendarEvent, error) {
	var events []model.CalendarEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan calendar event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func (s *CalendarEventStore) ListMembers(ctx context.Context, eventID int64) ([]model.EventMember, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT event_id, member_id, role FROM calendar_event_members WHERE event_id = ? ORDER BY member_id`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("query event members: %w", err)
	}
	defer rows.Close()

	var members []model.EventMember
	for rows.Next() {
		var m model.EventMember
		var role string
		if err := rows.Scan(&m.EventID, &m.MemberID, &role); err != nil {
			return nil, fmt.Errorf("scan event member: %w", err)
		}
		m.Role = model.MemberRole(role)
		members = append(members, m)
	}
	return members, rows.Err()
}

// Update overwrites all series fields and synchronizes membership against the
// requested set: members absent from the request are removed, present ones get
// their role updated, new ones are added. Exceptions and recurrence end are
// untouched unless provided. Atomic.
func (s *CalendarEventStore) Update(ctx context.Context, id int64, p SeriesParams) (*model.CalendarEvent, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`UPDATE calendar_events
		 SET title = ?, description = ?, location = ?, color = ?,
		     start_time = ?, end_time = ?, all_day = ?, rrule = ?, recurrence_end = ?,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		p.Title, p.Description, p.Location, p.Color,
		p.StartTime.UTC(), p.EndTime.UTC(), boolInt(p.AllDay),
		nullRule(p.RRule), nullTime(p.RecurrenceEnd), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update calendar event: %w", err)
	}

	if err := syncMembers(ctx, tx, id, p.Members); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(ctx, id)
}

func syncMembers(ctx context.Context, tx *sql.Tx, eventID int64, want []model.EventMember) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT member_id, role FROM calendar_event_members WHERE event_id = ?`, eventID)
	if err != nil {
		return fmt.Errorf("query current members: %w", err)
	}
	current := make(map[int64]model.MemberRole)
	for rows.Next() {
		var id int64
		var role string
		if err := rows.Scan(&id, &role); err != nil {
			rows.Close()
			return fmt.Errorf("scan current member: %w", err)
		}
		current[id] = model.MemberRole(role)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	wanted := make(map[int64]model.MemberRole, len(want))
	for _, m := range want {
		wanted[m.MemberID] = m.Role
	}

	for memberID := range current {
		if _, ok := wanted[memberID]; !ok {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM calendar_event_members WHERE event_id = ? AND member_id = ?`,
				eventID, memberID,
			); err != nil {
				return fmt.Errorf("remove event member: %w", err)
			}
		}
	}
	for memberID, role := range wanted {
		if have, ok := current[memberID]; ok {
			if have != role {
				if _, err := tx.ExecContext(ctx,
					`UPDATE calendar_event_members SET role = ? WHERE event_id = ? AND member_id = ?`,
					string(role), eventID, memberID,
				); err != nil {
					return fmt.Errorf("update event member role: %w", err)
				}
			}
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO calendar_event_members (event_id, member_id, role) VALUES (?, ?, ?)`,
			eventID, memberID, string(role),
		); err != nil {
			return fmt.Errorf("add event member: %w", err)
		}
	}
	return nil
}

// Delete removes the series; members and exceptions cascade.
func (s *CalendarEventStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM calendar_events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete calendar event: %w", err)
	}
	return nil
}

const exceptionCols = `id, event_id, original_start, is_deleted, title, description, location,
	start_time, end_time, all_day, created_at, updated_at`

func scanException(scanner interface{ Scan(...any) error }) (*model.EventException, error) {
	var x model.EventException
	var deleted int
	var title, description, location sql.NullString
	var start, end sql.NullTime
	var allDay sql.NullInt64

	err := scanner.Scan(&x.ID, &x.EventID, &x.OriginalStart, &deleted,
		&title, &description, &location, &start, &end, &allDay,
		&x.CreatedAt, &x.UpdatedAt)
	if err != nil {
		return nil, err
	}

	x.OriginalStart = x.OriginalStart.UTC()
	x.IsDeleted = deleted != 0
	if title.Valid {
		x.Title = &title.String
	}
	if description.Valid {
		x.Description = &description.String
	}
	if location.Valid {
		x.Location = &location.String
	}
	if start.Valid {
		t := start.Time.UTC()
		x.StartTime = &t
	}
	if end.Valid {
		t := end.Time.UTC()
		x.EndTime = &t
	}
	if allDay.Valid {
		b := allDay.Int64 != 0
		x.AllDay = &b
	}
	return &x, nil
}

func (s *CalendarEventStore) ListExceptions(ctx context.Context, eventID int64) ([]model.EventException, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+exceptionCols+` FROM calendar_event_exceptions WHERE event_id = ? ORDER BY original_start`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("query exceptions: %w", err)
	}
	defer rows.Close()

	var exceptions []model.EventException
	for rows.Next() {
		x, err := scanException(rows)
		if err != nil {
			return nil, fmt.Errorf("scan exception: %w", err)
		}
		exceptions = append(exceptions, *x)
	}
	return exceptions, rows.Err()
}

// UpsertException writes the exception for (event, originalStart), replacing
// any existing one. A deletion clears all override fields.
func (s *CalendarEventStore) UpsertException(ctx context.Context, eventID int64, originalStart time.Time, p ExceptionParams) error {
	if p.IsDeleted {
		p = ExceptionParams{IsDeleted: true}
	}

	var allDay sql.NullInt64
	if p.AllDay != nil {
		allDay = sql.NullInt64{Int64: int64(boolInt(*p.AllDay)), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO calendar_event_exceptions
		 (event_id, original_start, is_deleted, title, description, location, start_time, end_time, all_day)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (event_id, original_start) DO UPDATE SET
		   is_deleted = excluded.is_deleted,
		   title = excluded.title,
		   description = excluded.description,
		   location = excluded.location,
		   start_time = excluded.start_time,
		   end_time = excluded.end_time,
		   all_day = excluded.all_day,
		   updated_at = CURRENT_TIMESTAMP`,
		eventID, originalStart.UTC(), boolInt(p.IsDeleted),
		nullString(p.Title), nullString(p.Description), nullString(p.Location),
		nullTime(p.StartTime), nullTime(p.EndTime), allDay,
	)
	if err != nil {
		return fmt.Errorf("upsert exception: %w", err)
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// Truncate ends the series just before splitAt and discards exceptions for
// occurrences on or after the split, which no longer exist. Atomic.
func (s *CalendarEventStore) Truncate(ctx context.Context, id int64, splitAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := truncateSeries(ctx, tx, id, splitAt); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func truncateSeries(ctx context.Context, tx *sql.Tx, id int64, splitAt time.Time) error {
	cutoff := splitAt.UTC().Add(-time.Second)
	if _, err := tx.ExecContext(ctx,
		`UPDATE calendar_events SET recurrence_end = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		cutoff, id,
	); err != nil {
		return fmt.Errorf("truncate series: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM calendar_event_exceptions WHERE event_id = ? AND original_start >= ?`,
		id, splitAt.UTC(),
	); err != nil {
		return fmt.Errorf("discard split exceptions: %w", err)
	}
	return nil
}

// Split truncates the series at splitAt and creates a sibling series carrying
// the requested fields for the remaining occurrences. The sibling starts with
// the original's members (roles preserved) and no exceptions; the lineage is
// recorded on the sibling. All or nothing.
func (s *CalendarEventStore) Split(ctx context.Context, id int64, splitAt time.Time, p SeriesParams) (*model.CalendarEvent, error) {
	members, err := s.ListMembers(ctx, id)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := truncateSeries(ctx, tx, id, splitAt); err != nil {
		return nil, err
	}

	p.Members = members
	for i := range p.Members {
		p.Members[i].EventID = 0
	}
	newID, err := insertSeries(ctx, tx, p, &id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(ctx, newID)
}
