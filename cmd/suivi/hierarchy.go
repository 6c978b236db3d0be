package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"suivi/internal/app"
	"suivi/internal/domain"
	"suivi/internal/mapper"
)

func disciplesCmd() *cobra.Command {
	d := &cobra.Command{Use: "disciples", Short: "Browse and manage the supervision graph"}
	d.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every disciple",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				if err := s.Facades.Subjects.Load(ctx); err != nil {
					return err
				}
				return printSubjects(s.Facades.Subjects.Items())
			})
		},
	})
	d.AddCommand(&cobra.Command{
		Use:   "team [supervisor-id]",
		Short: "List disciples directly supervised by you or by the given disciple",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				supervisor := s.Viewer.ID
				if len(args) == 1 {
					supervisor = args[0]
				}
				if err := s.Facades.Subjects.LoadFor(ctx, supervisor); err != nil {
					return err
				}
				return printSubjects(s.Facades.Subjects.Items())
			})
		},
	})
	d.AddCommand(&cobra.Command{
		Use:   "assign <disciple-id> [supervisor-id]",
		Short: "Attach a disciple to a supervisor, or detach without one",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				if err := s.Facades.Subjects.Load(ctx); err != nil {
					return err
				}
				supervisor := ""
				if len(args) == 2 {
					supervisor = args[1]
				}
				subject, err := s.Facades.Subjects.AssignSupervisor(ctx, args[0], supervisor)
				if err != nil {
					return err
				}
				return printSubjects([]domain.Subject{subject})
			})
		},
	})
	return d
}

func printSubjects(subjects []domain.Subject) error {
	if viper.GetBool("json") {
		out := make([]mapper.SubjectDTO, 0, len(subjects))
		for _, s := range subjects {
			out = append(out, mapper.SubjectFromDomain(s))
		}
		return printJSON(out)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"ID", "Name", "Role", "Supervisor", "Region", "Zone", "Local", "Sub"})
	for _, s := range subjects {
		tw.AppendRow(table.Row{s.ID, s.Name, s.Role, s.SupervisorID, s.RegionID, s.ZoneID, s.LocalUnitID, s.SubUnitID})
	}
	tw.Render()
	return nil
}

func unitsCmd() *cobra.Command {
	u := &cobra.Command{Use: "units", Short: "Browse and manage organizational units"}
	var level string
	list := &cobra.Command{
		Use:   "list",
		Short: "List the units of one level",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				f := s.Facades.Units.Level(domain.UnitLevel(level))
				if f == nil {
					return fmt.Errorf("invalid level %q", level)
				}
				if err := f.Load(ctx); err != nil {
					return err
				}
				return printUnits(f.Items())
			})
		},
	}
	list.Flags().StringVar(&level, "level", string(domain.LevelRegion), "region, zone, local or sub")
	u.AddCommand(list)

	var childLevel string
	children := &cobra.Command{
		Use:   "children <parent-id>",
		Short: "List the units directly under a parent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				f := s.Facades.Units.Level(domain.UnitLevel(childLevel))
				if f == nil {
					return fmt.Errorf("invalid level %q", childLevel)
				}
				if err := f.LoadFor(ctx, args[0]); err != nil {
					return err
				}
				return printUnits(f.Items())
			})
		},
	}
	children.Flags().StringVar(&childLevel, "level", string(domain.LevelZone), "level of the children")
	u.AddCommand(children)

	var createLevel, name, parent string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a unit (pasteur and admin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				unit, err := s.Facades.Units.Create(ctx, domain.UnitLevel(createLevel), domain.OrgUnitRequest{Name: name, ParentID: parent})
				if err != nil {
					return err
				}
				return printUnits([]domain.OrgUnit{unit})
			})
		},
	}
	create.Flags().StringVar(&createLevel, "level", "", "region, zone, local or sub")
	create.Flags().StringVar(&name, "name", "", "unit name")
	create.Flags().StringVar(&parent, "parent", "", "parent unit id (required below region)")
	_ = create.MarkFlagRequired("level")
	_ = create.MarkFlagRequired("name")
	u.AddCommand(create)

	var deleteLevel string
	del := &cobra.Command{
		Use:   "delete <unit-id>",
		Short: "Delete a unit and everything under it (pasteur and admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				if err := s.Facades.Units.Delete(ctx, domain.UnitLevel(deleteLevel), args[0]); err != nil {
					return err
				}
				fmt.Println("deleted", args[0])
				return nil
			})
		},
	}
	del.Flags().StringVar(&deleteLevel, "level", "", "level of the unit")
	_ = del.MarkFlagRequired("level")
	u.AddCommand(del)
	return u
}

func printUnits(units []domain.OrgUnit) error {
	if viper.GetBool("json") {
		out := make([]mapper.OrgUnitDTO, 0, len(units))
		for _, u := range units {
			out = append(out, mapper.OrgUnitFromDomain(u))
		}
		return printJSON(out)
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"ID", "Level", "Name", "Parent", "Children"})
	for _, u := range units {
		tw.AppendRow(table.Row{u.ID, u.Level, u.Name, u.ParentID, u.ChildCount})
	}
	tw.Render()
	return nil
}

func accountsCmd() *cobra.Command {
	a := &cobra.Command{Use: "accounts", Short: "Browse login accounts"}
	var disciple string
	list := &cobra.Command{
		Use:   "list",
		Short: "List accounts, or one disciple's accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				var err error
				if disciple != "" {
					err = s.Facades.Accounts.LoadFor(ctx, disciple)
				} else {
					err = s.Facades.Accounts.Load(ctx)
				}
				if err != nil {
					return err
				}
				items := s.Facades.Accounts.Items()
				if viper.GetBool("json") {
					out := make([]mapper.AccountDTO, 0, len(items))
					for _, acc := range items {
						out = append(out, mapper.AccountFromDomain(acc))
					}
					return printJSON(out)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Disciple", "Email", "Role", "Active"})
				for _, acc := range items {
					tw.AppendRow(table.Row{acc.ID, acc.SubjectID, acc.Email, acc.Role, acc.Active})
				}
				tw.Render()
				return nil
			})
		},
	}
	list.Flags().StringVar(&disciple, "disciple", "", "only this disciple's accounts")
	a.AddCommand(list)
	return a
}
