package facade

import (
	"suivi/internal/client"
	"suivi/internal/identity"
	"suivi/internal/repo"
)

// Repositories groups the remote collaborators of a Set.
type Repositories struct {
	Reports  repo.ReportRepository
	Subjects repo.SubjectRepository
	Units    repo.OrgUnitRepository
	Accounts repo.AccountRepository
}

// HTTPRepositories backs every family with the reporting API behind c.
func HTTPRepositories(c *client.Client) Repositories {
	return Repositories{
		Reports:  repo.HTTPReports{Client: c},
		Subjects: repo.HTTPSubjects{Client: c},
		Units:    repo.HTTPOrgUnits{Client: c},
		Accounts: repo.HTTPAccounts{Client: c},
	}
}

// Set wires one facade per family for a session. The report facade resolves
// visibility over the subject facade's graph.
type Set struct {
	Reports  *Reports
	Subjects *Subjects
	Units    *Hierarchy
	Accounts *Accounts
}

func NewSet(r Repositories, id identity.Provider, opts ...Option) *Set {
	subjects := NewSubjects(r.Subjects, id, opts...)
	return &Set{
		Reports:  NewReports(r.Reports, id, subjects.Resolver(), opts...),
		Subjects: subjects,
		Units:    NewHierarchy(r.Units, id, opts...),
		Accounts: NewAccounts(r.Accounts, id, opts...),
	}
}

// Clear resets every facade, as on logout.
func (s *Set) Clear() {
	s.Reports.Clear()
	s.Subjects.Clear()
	s.Units.Clear()
	s.Accounts.Clear()
}
