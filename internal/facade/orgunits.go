package facade

import (
	"context"
	"errors"
	"fmt"

	"suivi/internal/domain"
	"suivi/internal/identity"
	"suivi/internal/repo"
	"suivi/internal/visibility"
)

var (
	ErrParentRequired = errors.New("unit requires a parent at the level above")
	ErrRegionParent   = errors.New("regions have no parent")
)

func unitKey(u domain.OrgUnit) string { return u.ID }

// OrgUnits is the facade over one level of the organizational tree.
type OrgUnits struct {
	*base[domain.OrgUnit]
	level domain.UnitLevel
	repo  repo.OrgUnitRepository
}

func NewOrgUnits(level domain.UnitLevel, r repo.OrgUnitRepository, id identity.Provider, opts ...Option) *OrgUnits {
	return &OrgUnits{
		base:  newBase("units_"+string(level), unitKey, id, buildOptions(opts)),
		level: level,
		repo:  r,
	}
}

func (f *OrgUnits) Level() domain.UnitLevel { return f.level }

func (f *OrgUnits) Load(ctx context.Context) error {
	return f.load(ctx, "load", func(ctx context.Context) ([]domain.OrgUnit, error) {
		return f.repo.GetAll(ctx, f.level)
	})
}

// LoadFor fetches the units of this level under parentID.
func (f *OrgUnits) LoadFor(ctx context.Context, parentID string) error {
	return f.load(ctx, "load_for", func(ctx context.Context) ([]domain.OrgUnit, error) {
		return f.repo.GetByOwner(ctx, parentID)
	})
}

func (f *OrgUnits) LoadForMany(ctx context.Context, parentIDs []string) error {
	return f.loadMany(ctx, "load_for_many", parentIDs, f.repo.GetByOwner)
}

func (f *OrgUnits) Create(ctx context.Context, req domain.OrgUnitRequest) (domain.OrgUnit, error) {
	if err := f.administer("create"); err != nil {
		return domain.OrgUnit{}, err
	}
	_, hasParent := f.level.Parent()
	switch {
	case hasParent && req.ParentID == "":
		return domain.OrgUnit{}, f.reject("create", fmt.Errorf("%s: %w", f.level, ErrParentRequired))
	case !hasParent && req.ParentID != "":
		return domain.OrgUnit{}, f.reject("create", ErrRegionParent)
	}
	return f.mutate(ctx, "create", func(ctx context.Context) (domain.OrgUnit, error) {
		return f.repo.Create(ctx, f.level, req)
	}, f.state.Append)
}

func (f *OrgUnits) Update(ctx context.Context, id string, req domain.OrgUnitRequest) (domain.OrgUnit, error) {
	if err := f.administer("update"); err != nil {
		return domain.OrgUnit{}, err
	}
	return f.mutate(ctx, "update", func(ctx context.Context) (domain.OrgUnit, error) {
		return f.repo.Update(ctx, id, req)
	}, f.state.Replace)
}

func (f *OrgUnits) Delete(ctx context.Context, id string) error {
	if err := f.administer("delete"); err != nil {
		return err
	}
	return f.remove(ctx, "delete", id, func(ctx context.Context) error {
		return f.repo.Delete(ctx, id)
	})
}

// Refresh re-reads one unit and replaces it in place. Units not in the
// collection stay absent.
func (f *OrgUnits) Refresh(ctx context.Context, id string) (domain.OrgUnit, error) {
	return f.mutate(ctx, "refresh", func(ctx context.Context) (domain.OrgUnit, error) {
		return f.repo.GetByID(ctx, id)
	}, f.state.Replace)
}

func (f *OrgUnits) administer(op string) error {
	v, err := f.viewer(op)
	if err != nil {
		return err
	}
	if !visibility.CanAdminister(v.Role) {
		return f.reject(op, &visibility.ForbiddenError{Role: v.Role, Action: op + " " + string(f.level) + " units"})
	}
	return nil
}

// Hierarchy links one facade per level. Creating or deleting a unit refreshes
// its cached parent so the server's child count shows through.
type Hierarchy struct {
	levels map[domain.UnitLevel]*OrgUnits
}

func NewHierarchy(r repo.OrgUnitRepository, id identity.Provider, opts ...Option) *Hierarchy {
	h := &Hierarchy{levels: make(map[domain.UnitLevel]*OrgUnits, len(domain.Levels))}
	for _, level := range domain.Levels {
		h.levels[level] = NewOrgUnits(level, r, id, opts...)
	}
	return h
}

// Level returns the facade for level, or nil for an unknown level.
func (h *Hierarchy) Level(level domain.UnitLevel) *OrgUnits { return h.levels[level] }

func (h *Hierarchy) Create(ctx context.Context, level domain.UnitLevel, req domain.OrgUnitRequest) (domain.OrgUnit, error) {
	f, err := h.facade(level)
	if err != nil {
		return domain.OrgUnit{}, err
	}
	unit, err := f.Create(ctx, req)
	if err != nil {
		return domain.OrgUnit{}, err
	}
	h.refreshParent(ctx, level, req.ParentID)
	return unit, nil
}

// Delete removes id from level. The parent is taken from the cached unit.
func (h *Hierarchy) Delete(ctx context.Context, level domain.UnitLevel, id string) error {
	f, err := h.facade(level)
	if err != nil {
		return err
	}
	unit, _ := f.Get(id)
	if err := f.Delete(ctx, id); err != nil {
		return err
	}
	h.refreshParent(ctx, level, unit.ParentID)
	return nil
}

// Clear resets every level.
func (h *Hierarchy) Clear() {
	for _, f := range h.levels {
		f.Clear()
	}
}

// refreshParent re-reads the parent if its level holds it. A failure is
// published on the parent's facade.
func (h *Hierarchy) refreshParent(ctx context.Context, level domain.UnitLevel, parentID string) {
	parentLevel, ok := level.Parent()
	if !ok || parentID == "" {
		return
	}
	parent := h.levels[parentLevel]
	if _, cached := parent.Get(parentID); !cached {
		return
	}
	_, _ = parent.Refresh(ctx, parentID)
}

func (h *Hierarchy) facade(level domain.UnitLevel) (*OrgUnits, error) {
	f, ok := h.levels[level]
	if !ok {
		return nil, fmt.Errorf("unknown unit level %q", level)
	}
	return f, nil
}
