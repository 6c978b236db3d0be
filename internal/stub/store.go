package stub

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"suivi/internal/config"
	"suivi/internal/domain"
	"suivi/internal/events"
	"suivi/internal/lifecycle"
	"suivi/internal/mapper"
	"suivi/internal/visibility"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// Store keeps the stub backend's records in SQLite.
type Store struct {
	DB     *sql.DB
	Events events.Writer
	Now    func() time.Time
}

func NewStore(conn *sql.DB) *Store {
	return &Store{DB: conn, Events: events.Writer{DB: conn}, Now: time.Now}
}

func (s *Store) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// graph is a fixed subject snapshot for the visibility resolver.
type graph []domain.Subject

func (g graph) Subjects() []domain.Subject { return g }

// Resolver returns a visibility resolver over the current disciples.
func (s *Store) Resolver(ctx context.Context) (visibility.Resolver, error) {
	subjects, err := s.ListDisciples(ctx, "")
	if err != nil {
		return visibility.Resolver{}, err
	}
	return visibility.New(graph(subjects)), nil
}

// Reports

const reportColumns = `id,disciple_id,date,status,reviewed,comment,activities_json,created_at,updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (domain.Report, error) {
	var r domain.Report
	var date, status, activities, created, updated string
	err := row.Scan(&r.ID, &r.SubjectID, &date, &status, &r.Reviewed, &r.Comment, &activities, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNotFound
	}
	if err != nil {
		return r, err
	}
	r.Status = domain.ReportStatus(status)
	if r.Date, err = mapper.ParseDate(date); err != nil {
		return r, err
	}
	if err := json.Unmarshal([]byte(activities), &r.Activities); err != nil {
		return r, fmt.Errorf("report %s activities: %w", r.ID, err)
	}
	if r.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return r, err
	}
	r.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated)
	return r, err
}

// ListReports returns reports newest first. An empty owner lists every report.
func (s *Store) ListReports(ctx context.Context, owner string) ([]domain.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports`
	var args []any
	if owner != "" {
		query += ` WHERE disciple_id=?`
		args = append(args, owner)
	}
	rows, err := s.DB.QueryContext(ctx, query+` ORDER BY date DESC, created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.Report{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) GetReport(ctx context.Context, id string) (domain.Report, error) {
	return scanReport(s.DB.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE id=?`, id))
}

// CreateReport stores a draft owned by actor.
func (s *Store) CreateReport(ctx context.Context, actor domain.Viewer, req domain.ReportRequest) (domain.Report, error) {
	if req.Date.IsZero() {
		return domain.Report{}, fmt.Errorf("date is required")
	}
	report := lifecycle.New(actor.ID, req, s.now())
	if err := lifecycle.Check(visibility.ActionCreate, actor, report); err != nil {
		return domain.Report{}, err
	}
	report.ID = uuid.NewString()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		activities, err := json.Marshal(report.Activities)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO reports(`+reportColumns+`) VALUES (?,?,?,?,?,?,?,?,?)`,
			report.ID, report.SubjectID, mapper.FormatDate(report.Date), string(report.Status), report.Reviewed,
			report.Comment, string(activities), stamp(report.CreatedAt), stamp(report.UpdatedAt))
		if err != nil {
			return translate(err)
		}
		return s.Events.Append(ctx, tx, "report.create", "report", report.ID, actor.ID, events.EventPayload{
			"disciple_id": report.SubjectID,
			"date":        mapper.FormatDate(report.Date),
		})
	})
	return report, err
}

// TransitionReport checks action against the lifecycle and the actor's scope,
// applies it and records an event.
func (s *Store) TransitionReport(ctx context.Context, actor domain.Viewer, action visibility.Action, id string, change lifecycle.Change) (domain.Report, error) {
	resolver, err := s.Resolver(ctx)
	if err != nil {
		return domain.Report{}, err
	}
	var next domain.Report
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := scanReport(tx.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE id=?`, id))
		if err != nil {
			return err
		}
		if visibility.IsSupervisorAction(action) && !resolver.CanSee(actor, current.SubjectID) {
			return &visibility.ForbiddenError{Role: actor.Role, Action: string(action)}
		}
		if err := lifecycle.Check(action, actor, current); err != nil {
			return err
		}
		if next, err = lifecycle.Apply(action, current, change, s.now()); err != nil {
			return err
		}
		activities, err := json.Marshal(next.Activities)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE reports SET date=?,status=?,reviewed=?,comment=?,activities_json=?,updated_at=? WHERE id=?`,
			mapper.FormatDate(next.Date), string(next.Status), next.Reviewed, next.Comment, string(activities), stamp(next.UpdatedAt), id)
		if err != nil {
			return translate(err)
		}
		return s.Events.Append(ctx, tx, "report."+string(action), "report", id, actor.ID, events.EventPayload{
			"from": string(current.Status),
			"to":   string(next.Status),
		})
	})
	return next, err
}

func (s *Store) DeleteReport(ctx context.Context, actor domain.Viewer, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := scanReport(tx.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE id=?`, id))
		if err != nil {
			return err
		}
		if err := lifecycle.Check(visibility.ActionDelete, actor, current); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM reports WHERE id=?`, id); err != nil {
			return err
		}
		return s.Events.Append(ctx, tx, "report.delete", "report", id, actor.ID, nil)
	})
}

// Disciples

const discipleColumns = `id,name,role,COALESCE(supervisor_id,''),COALESCE(region_id,''),COALESCE(zone_id,''),COALESCE(local_unit_id,''),COALESCE(sub_unit_id,'')`

func scanDisciple(row rowScanner) (domain.Subject, error) {
	var d domain.Subject
	var role string
	err := row.Scan(&d.ID, &d.Name, &role, &d.SupervisorID, &d.RegionID, &d.ZoneID, &d.LocalUnitID, &d.SubUnitID)
	if errors.Is(err, sql.ErrNoRows) {
		return d, ErrNotFound
	}
	d.Role = domain.ParseRole(role)
	return d, err
}

// ListDisciples lists every disciple, or only those directly under supervisorID.
func (s *Store) ListDisciples(ctx context.Context, supervisorID string) ([]domain.Subject, error) {
	query := `SELECT ` + discipleColumns + ` FROM disciples`
	var args []any
	if supervisorID != "" {
		query += ` WHERE supervisor_id=?`
		args = append(args, supervisorID)
	}
	rows, err := s.DB.QueryContext(ctx, query+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.Subject{}
	for rows.Next() {
		d, err := scanDisciple(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) GetDisciple(ctx context.Context, id string) (domain.Subject, error) {
	return scanDisciple(s.DB.QueryRowContext(ctx, `SELECT `+discipleColumns+` FROM disciples WHERE id=?`, id))
}

// CreateDisciple inserts a disciple. An empty id is assigned.
func (s *Store) CreateDisciple(ctx context.Context, actorID, id string, req domain.SubjectRequest) (domain.Subject, error) {
	if strings.TrimSpace(req.Name) == "" {
		return domain.Subject{}, fmt.Errorf("name is required")
	}
	if id == "" {
		id = uuid.NewString()
	}
	d := domain.Subject{ID: id, Name: req.Name}
	applySubject(&d, req)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO disciples(id,name,role,supervisor_id,region_id,zone_id,local_unit_id,sub_unit_id,created_at) VALUES (?,?,?,?,?,?,?,?,?)`,
			d.ID, d.Name, d.Role.String(), nullable(d.SupervisorID), nullable(d.RegionID), nullable(d.ZoneID),
			nullable(d.LocalUnitID), nullable(d.SubUnitID), stamp(s.now()))
		if err != nil {
			return translate(err)
		}
		return s.Events.Append(ctx, tx, "disciple.create", "disciple", d.ID, actorID, events.EventPayload{"role": d.Role.String()})
	})
	return d, err
}

// UpdateDisciple applies the non-nil fields of req. An empty string clears a link.
func (s *Store) UpdateDisciple(ctx context.Context, actorID, id string, req domain.SubjectRequest) (domain.Subject, error) {
	var d domain.Subject
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		d, err = scanDisciple(tx.QueryRowContext(ctx, `SELECT `+discipleColumns+` FROM disciples WHERE id=?`, id))
		if err != nil {
			return err
		}
		if req.SupervisorID != nil && *req.SupervisorID == id {
			return fmt.Errorf("%w: disciple cannot supervise itself", ErrConflict)
		}
		if req.Name != "" {
			d.Name = req.Name
		}
		applySubject(&d, req)
		_, err = tx.ExecContext(ctx, `UPDATE disciples SET name=?,role=?,supervisor_id=?,region_id=?,zone_id=?,local_unit_id=?,sub_unit_id=? WHERE id=?`,
			d.Name, d.Role.String(), nullable(d.SupervisorID), nullable(d.RegionID), nullable(d.ZoneID),
			nullable(d.LocalUnitID), nullable(d.SubUnitID), id)
		if err != nil {
			return translate(err)
		}
		return s.Events.Append(ctx, tx, "disciple.update", "disciple", id, actorID, nil)
	})
	return d, err
}

func (s *Store) DeleteDisciple(ctx context.Context, actorID, id string) error {
	return s.deleteRow(ctx, "disciples", "disciple", id, actorID)
}

func applySubject(d *domain.Subject, req domain.SubjectRequest) {
	if req.Role != nil {
		d.Role = *req.Role
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&d.SupervisorID, req.SupervisorID)
	set(&d.RegionID, req.RegionID)
	set(&d.ZoneID, req.ZoneID)
	set(&d.LocalUnitID, req.LocalUnitID)
	set(&d.SubUnitID, req.SubUnitID)
}

// Org units

const unitColumns = `u.id,u.level,u.name,COALESCE(u.parent_id,''),(SELECT COUNT(*) FROM org_units c WHERE c.parent_id=u.id)`

func scanUnit(row rowScanner) (domain.OrgUnit, error) {
	var u domain.OrgUnit
	var level string
	err := row.Scan(&u.ID, &level, &u.Name, &u.ParentID, &u.ChildCount)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	u.Level = domain.UnitLevel(level)
	return u, err
}

func (s *Store) queryUnits(ctx context.Context, where string, arg any) ([]domain.OrgUnit, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+unitColumns+` FROM org_units u WHERE `+where+` ORDER BY u.created_at, u.id`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.OrgUnit{}
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) ListUnits(ctx context.Context, level domain.UnitLevel) ([]domain.OrgUnit, error) {
	return s.queryUnits(ctx, `u.level=?`, string(level))
}

func (s *Store) ListChildUnits(ctx context.Context, parentID string) ([]domain.OrgUnit, error) {
	return s.queryUnits(ctx, `u.parent_id=?`, parentID)
}

func (s *Store) GetUnit(ctx context.Context, id string) (domain.OrgUnit, error) {
	return scanUnit(s.DB.QueryRowContext(ctx, `SELECT `+unitColumns+` FROM org_units u WHERE u.id=?`, id))
}

// CreateUnit inserts a unit after checking that its parent sits one level up.
func (s *Store) CreateUnit(ctx context.Context, actorID, id string, level domain.UnitLevel, req domain.OrgUnitRequest) (domain.OrgUnit, error) {
	if !level.Valid() {
		return domain.OrgUnit{}, fmt.Errorf("invalid unit level %q", level)
	}
	if strings.TrimSpace(req.Name) == "" {
		return domain.OrgUnit{}, fmt.Errorf("name is required")
	}
	parentLevel, hasParent := level.Parent()
	if !hasParent && req.ParentID != "" {
		return domain.OrgUnit{}, fmt.Errorf("invalid parent: regions have no parent")
	}
	if hasParent {
		parent, err := s.GetUnit(ctx, req.ParentID)
		if errors.Is(err, ErrNotFound) {
			return domain.OrgUnit{}, fmt.Errorf("invalid parent %q: %w", req.ParentID, err)
		}
		if err != nil {
			return domain.OrgUnit{}, err
		}
		if parent.Level != parentLevel {
			return domain.OrgUnit{}, fmt.Errorf("invalid parent: %s units sit under %s units", level, parentLevel)
		}
	}
	if id == "" {
		id = uuid.NewString()
	}
	u := domain.OrgUnit{ID: id, Level: level, Name: req.Name, ParentID: req.ParentID}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO org_units(id,level,name,parent_id,created_at) VALUES (?,?,?,?,?)`,
			u.ID, string(u.Level), u.Name, nullable(u.ParentID), stamp(s.now()))
		if err != nil {
			return translate(err)
		}
		return s.Events.Append(ctx, tx, "unit.create", "unit", u.ID, actorID, events.EventPayload{"level": string(level), "parent_id": u.ParentID})
	})
	return u, err
}

// UpdateUnit renames a unit. Units are not re-parented.
func (s *Store) UpdateUnit(ctx context.Context, actorID, id string, req domain.OrgUnitRequest) (domain.OrgUnit, error) {
	if strings.TrimSpace(req.Name) == "" {
		return domain.OrgUnit{}, fmt.Errorf("name is required")
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE org_units SET name=? WHERE id=?`, req.Name, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return s.Events.Append(ctx, tx, "unit.update", "unit", id, actorID, nil)
	})
	if err != nil {
		return domain.OrgUnit{}, err
	}
	return s.GetUnit(ctx, id)
}

func (s *Store) DeleteUnit(ctx context.Context, actorID, id string) error {
	return s.deleteRow(ctx, "org_units", "unit", id, actorID)
}

// Accounts

const accountColumns = `id,disciple_id,email,role,active,created_at`

func scanAccount(row rowScanner) (domain.Account, error) {
	var a domain.Account
	var role, created string
	err := row.Scan(&a.ID, &a.SubjectID, &a.Email, &role, &a.Active, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return a, ErrNotFound
	}
	if err != nil {
		return a, err
	}
	a.Role = domain.ParseRole(role)
	a.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
	return a, err
}

func (s *Store) ListAccounts(ctx context.Context, subjectID string) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts`
	var args []any
	if subjectID != "" {
		query += ` WHERE disciple_id=?`
		args = append(args, subjectID)
	}
	rows, err := s.DB.QueryContext(ctx, query+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) GetAccount(ctx context.Context, id string) (domain.Account, error) {
	return scanAccount(s.DB.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=?`, id))
}

// CreateAccount opens an account for an existing disciple. Without an explicit
// role the account takes the disciple's.
func (s *Store) CreateAccount(ctx context.Context, actorID string, req domain.AccountRequest) (domain.Account, error) {
	if req.SubjectID == "" || strings.TrimSpace(req.Email) == "" {
		return domain.Account{}, fmt.Errorf("disciple_id and email are required")
	}
	owner, err := s.GetDisciple(ctx, req.SubjectID)
	if errors.Is(err, ErrNotFound) {
		return domain.Account{}, fmt.Errorf("invalid disciple_id %q: %w", req.SubjectID, err)
	}
	if err != nil {
		return domain.Account{}, err
	}
	a := domain.Account{
		ID:        uuid.NewString(),
		SubjectID: req.SubjectID,
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Role:      owner.Role,
		Active:    true,
		CreatedAt: s.now(),
	}
	if req.Role != nil {
		a.Role = *req.Role
	}
	if req.Active != nil {
		a.Active = *req.Active
	}
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO accounts(`+accountColumns+`) VALUES (?,?,?,?,?,?)`,
			a.ID, a.SubjectID, a.Email, a.Role.String(), a.Active, stamp(a.CreatedAt))
		if err != nil {
			return translate(err)
		}
		return s.Events.Append(ctx, tx, "account.create", "account", a.ID, actorID, events.EventPayload{"disciple_id": a.SubjectID})
	})
	return a, err
}

func (s *Store) UpdateAccount(ctx context.Context, actorID, id string, req domain.AccountRequest) (domain.Account, error) {
	var a domain.Account
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		a, err = scanAccount(tx.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=?`, id))
		if err != nil {
			return err
		}
		if req.Email != "" {
			a.Email = strings.ToLower(strings.TrimSpace(req.Email))
		}
		if req.Role != nil {
			a.Role = *req.Role
		}
		if req.Active != nil {
			a.Active = *req.Active
		}
		_, err = tx.ExecContext(ctx, `UPDATE accounts SET email=?,role=?,active=? WHERE id=?`, a.Email, a.Role.String(), a.Active, id)
		if err != nil {
			return translate(err)
		}
		return s.Events.Append(ctx, tx, "account.update", "account", id, actorID, events.EventPayload{"active": a.Active})
	})
	return a, err
}

func (s *Store) DeleteAccount(ctx context.Context, actorID, id string) error {
	return s.deleteRow(ctx, "accounts", "account", id, actorID)
}

func (s *Store) deleteRow(ctx context.Context, table, kind, id, actorID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE id=?`, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return s.Events.Append(ctx, tx, kind+".delete", kind, id, actorID, nil)
	})
}

// Seed loads fixture units, disciples and their accounts.
func (s *Store) Seed(ctx context.Context, seed config.Seed) error {
	if err := seed.Validate(); err != nil {
		return err
	}
	levels := map[string]domain.UnitLevel{}
	for _, u := range seed.Units {
		level := domain.UnitLevel(u.Level)
		if _, err := s.CreateUnit(ctx, "seed", u.ID, level, domain.OrgUnitRequest{Name: u.Name, ParentID: u.Parent}); err != nil {
			return fmt.Errorf("seed unit %s: %w", u.ID, err)
		}
		levels[u.ID] = level
	}
	for _, d := range seed.Disciples {
		role := domain.ParseRole(d.Role)
		req := domain.SubjectRequest{Name: d.Name, Role: &role}
		if d.Supervisor != "" {
			req.SupervisorID = &d.Supervisor
		}
		placeUnit(&req, levels[d.Unit], d.Unit)
		if _, err := s.CreateDisciple(ctx, "seed", d.ID, req); err != nil {
			return fmt.Errorf("seed disciple %s: %w", d.ID, err)
		}
		if d.Email != "" {
			if _, err := s.CreateAccount(ctx, "seed", domain.AccountRequest{SubjectID: d.ID, Email: d.Email}); err != nil {
				return fmt.Errorf("seed account %s: %w", d.Email, err)
			}
		}
	}
	return nil
}

func placeUnit(req *domain.SubjectRequest, level domain.UnitLevel, id string) {
	if id == "" {
		return
	}
	switch level {
	case domain.LevelRegion:
		req.RegionID = &id
	case domain.LevelZone:
		req.ZoneID = &id
	case domain.LevelLocal:
		req.LocalUnitID = &id
	case domain.LevelSub:
		req.SubUnitID = &id
	}
}

func translate(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique constraint"):
		return fmt.Errorf("%w: %s", ErrConflict, err.Error())
	case strings.Contains(msg, "foreign key constraint"):
		return fmt.Errorf("invalid reference: %s", err.Error())
	}
	return err
}

// stampLayout keeps a fixed width so stored timestamps sort as text.
const stampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func stamp(t time.Time) string {
	return t.UTC().Format(stampLayout)
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
