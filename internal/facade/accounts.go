package facade

import (
	"context"

	"suivi/internal/domain"
	"suivi/internal/identity"
	"suivi/internal/repo"
	"suivi/internal/visibility"
)

func accountKey(a domain.Account) string { return a.ID }

// Accounts is the facade over login accounts. Only administrators list or
// change accounts; anyone may read their own.
type Accounts struct {
	*base[domain.Account]
	repo repo.AccountRepository
}

func NewAccounts(r repo.AccountRepository, id identity.Provider, opts ...Option) *Accounts {
	return &Accounts{
		base: newBase("accounts", accountKey, id, buildOptions(opts)),
		repo: r,
	}
}

func (f *Accounts) Load(ctx context.Context) error {
	if err := f.administer("load"); err != nil {
		return err
	}
	return f.load(ctx, "load", f.repo.GetAll)
}

// LoadFor fetches the accounts of subjectID.
func (f *Accounts) LoadFor(ctx context.Context, subjectID string) error {
	v, err := f.viewer("load_for")
	if err != nil {
		return err
	}
	if v.ID != subjectID && !visibility.CanAdminister(v.Role) {
		return f.reject("load_for", &visibility.ForbiddenError{Role: v.Role, Action: "view accounts"})
	}
	return f.load(ctx, "load_for", func(ctx context.Context) ([]domain.Account, error) {
		return f.repo.GetByOwner(ctx, subjectID)
	})
}

func (f *Accounts) LoadForMany(ctx context.Context, subjectIDs []string) error {
	if len(subjectIDs) > 0 {
		if err := f.administer("load_for_many"); err != nil {
			return err
		}
	}
	return f.loadMany(ctx, "load_for_many", subjectIDs, f.repo.GetByOwner)
}

func (f *Accounts) Create(ctx context.Context, req domain.AccountRequest) (domain.Account, error) {
	if err := f.administer("create"); err != nil {
		return domain.Account{}, err
	}
	return f.mutate(ctx, "create", func(ctx context.Context) (domain.Account, error) {
		return f.repo.Create(ctx, req)
	}, f.state.Append)
}

func (f *Accounts) Update(ctx context.Context, id string, req domain.AccountRequest) (domain.Account, error) {
	if err := f.administer("update"); err != nil {
		return domain.Account{}, err
	}
	return f.mutate(ctx, "update", func(ctx context.Context) (domain.Account, error) {
		return f.repo.Update(ctx, id, req)
	}, f.state.Replace)
}

func (f *Accounts) Delete(ctx context.Context, id string) error {
	if err := f.administer("delete"); err != nil {
		return err
	}
	return f.remove(ctx, "delete", id, func(ctx context.Context) error {
		return f.repo.Delete(ctx, id)
	})
}

func (f *Accounts) administer(op string) error {
	v, err := f.viewer(op)
	if err != nil {
		return err
	}
	if !visibility.CanAdminister(v.Role) {
		return f.reject(op, &visibility.ForbiddenError{Role: v.Role, Action: op + " accounts"})
	}
	return nil
}
