package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"suivi/internal/app"
	"suivi/internal/domain"
	"suivi/internal/mapper"
)

func whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in disciple",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				out := map[string]string{"id": s.Viewer.ID, "role": s.Viewer.Role.String(), "api": s.Config.API.BaseURL}
				if viper.GetBool("json") {
					return printJSON(out)
				}
				fmt.Printf("%s (%s) on %s\n", out["id"], out["role"], out["api"])
				return nil
			})
		},
	}
}

func dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Recent reports, status counts and pending reviews",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				d, err := s.Dashboard(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{
						"viewer":  d.Viewer.ID,
						"team":    d.Team,
						"counts":  d.Counts,
						"recent":  reportsToWire(d.Recent),
						"pending": reportsToWire(d.Pending),
					})
				}
				fmt.Printf("draft %d  submitted %d  validated %d\n",
					d.Counts[domain.StatusDraft], d.Counts[domain.StatusSubmitted], d.Counts[domain.StatusValidated])
				fmt.Println("Recent")
				renderReports(d.Recent)
				if d.Team {
					fmt.Println("Pending review")
					renderReports(d.Pending)
				}
				return nil
			})
		},
	}
}

func reportsCmd() *cobra.Command {
	rep := &cobra.Command{Use: "reports", Short: "Read and move reports through their lifecycle"}
	rep.AddCommand(reportsListCmd("mine", "Your own reports", func(ctx context.Context, s *app.Session, _ []string) error {
		return s.Facades.Reports.Load(ctx)
	}))
	rep.AddCommand(reportsListCmd("all", "Every report (pasteur and admin)", func(ctx context.Context, s *app.Session, _ []string) error {
		return s.Facades.Reports.LoadAll(ctx)
	}))
	rep.AddCommand(reportsListCmd("team", "Reports of everyone you supervise", func(ctx context.Context, s *app.Session, _ []string) error {
		if err := s.Facades.Subjects.Load(ctx); err != nil {
			return err
		}
		return s.Facades.Reports.LoadTeam(ctx)
	}))
	forCmd := reportsListCmd("for <disciple-id>...", "Reports of the given disciples", func(ctx context.Context, s *app.Session, ids []string) error {
		if err := s.Facades.Subjects.Load(ctx); err != nil {
			return err
		}
		return s.Facades.Reports.LoadForMany(ctx, ids)
	})
	forCmd.Args = cobra.MinimumNArgs(1)
	rep.AddCommand(forCmd)
	rep.AddCommand(reportsPendingCmd())
	rep.AddCommand(reportsCreateCmd())
	rep.AddCommand(reportsUpdateCmd())
	rep.AddCommand(reportsTransitionCmd("submit", "Submit one of your drafts", false, func(ctx context.Context, s *app.Session, id string) (domain.Report, error) {
		return s.Facades.Reports.Submit(ctx, id)
	}))
	rep.AddCommand(reportsTransitionCmd("validate", "Validate a submitted report", true, func(ctx context.Context, s *app.Session, id string) (domain.Report, error) {
		return s.Facades.Reports.Validate(ctx, id)
	}))
	rep.AddCommand(reportsTransitionCmd("review", "Mark a report as reviewed", true, func(ctx context.Context, s *app.Session, id string) (domain.Report, error) {
		return s.Facades.Reports.MarkReviewed(ctx, id)
	}))
	rep.AddCommand(reportsCommentCmd())
	rep.AddCommand(reportsDeleteCmd())
	return rep
}

func reportsListCmd(use, short string, load func(context.Context, *app.Session, []string) error) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				if err := load(ctx, s, args); err != nil {
					return err
				}
				items := s.Facades.Reports.Items()
				if status != "" {
					items = s.Facades.Reports.ByStatus(domain.ReportStatus(status))
				}
				return printReports(items)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "draft, submitted or validated")
	return cmd
}

func reportsPendingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "Submitted team reports nobody has reviewed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				if err := s.Facades.Subjects.Load(ctx); err != nil {
					return err
				}
				if err := s.Facades.Reports.LoadTeam(ctx); err != nil {
					return err
				}
				return printReports(s.Facades.Reports.PendingReview())
			})
		},
	}
}

func reportsCreateCmd() *cobra.Command {
	var date string
	var activities map[string]string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a draft report for a day",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := reportRequest(date, activities)
			if err != nil {
				return err
			}
			if req.Date.IsZero() {
				return fmt.Errorf("--date required")
			}
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				r, err := s.Facades.Reports.Create(ctx, req)
				if err != nil {
					return err
				}
				return printReports([]domain.Report{r})
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "report day (YYYY-MM-DD)")
	cmd.Flags().StringToStringVar(&activities, "activity", nil, "activity counter, e.g. --activity prayer_minutes=30")
	return cmd
}

func reportsUpdateCmd() *cobra.Command {
	var date string
	var activities map[string]string
	cmd := &cobra.Command{
		Use:   "update <report-id>",
		Short: "Edit one of your drafts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := reportRequest(date, activities)
			if err != nil {
				return err
			}
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				r, err := s.Facades.Reports.Update(ctx, args[0], req)
				if err != nil {
					return err
				}
				return printReports([]domain.Report{r})
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "new report day (YYYY-MM-DD)")
	cmd.Flags().StringToStringVar(&activities, "activity", nil, "activity counter, replaces the stored set")
	return cmd
}

// reportsTransitionCmd builds a one-report action. Supervisor actions load the
// disciple graph first so the scope check can run locally.
func reportsTransitionCmd(use, short string, supervisor bool, act func(context.Context, *app.Session, string) (domain.Report, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <report-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				if supervisor {
					if err := s.Facades.Subjects.Load(ctx); err != nil {
						return err
					}
				}
				r, err := act(ctx, s, args[0])
				if err != nil {
					return err
				}
				return printReports([]domain.Report{r})
			})
		},
	}
}

func reportsCommentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "comment <report-id> <text>",
		Short: "Leave a supervisor comment",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				if err := s.Facades.Subjects.Load(ctx); err != nil {
					return err
				}
				r, err := s.Facades.Reports.Comment(ctx, args[0], strings.Join(args[1:], " "))
				if err != nil {
					return err
				}
				return printReports([]domain.Report{r})
			})
		},
	}
}

func reportsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <report-id>",
		Short: "Delete one of your drafts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(ctx context.Context, s *app.Session) error {
				if err := s.Facades.Reports.Delete(ctx, args[0]); err != nil {
					return err
				}
				fmt.Println("deleted", args[0])
				return nil
			})
		},
	}
}

// reportRequest parses CLI input. Numeric activity values are stored as numbers.
func reportRequest(date string, activities map[string]string) (domain.ReportRequest, error) {
	var req domain.ReportRequest
	if date != "" {
		d, err := mapper.ParseDate(date)
		if err != nil {
			return req, err
		}
		req.Date = d
	}
	if len(activities) > 0 {
		req.Activities = make(map[string]any, len(activities))
		for k, v := range activities {
			if n, err := strconv.ParseFloat(v, 64); err == nil {
				req.Activities[k] = n
			} else {
				req.Activities[k] = v
			}
		}
	}
	return req, nil
}

func reportsToWire(reports []domain.Report) []mapper.ReportDTO {
	out := make([]mapper.ReportDTO, 0, len(reports))
	for _, r := range reports {
		out = append(out, mapper.ReportFromDomain(r))
	}
	return out
}

func printReports(reports []domain.Report) error {
	if viper.GetBool("json") {
		return printJSON(reportsToWire(reports))
	}
	renderReports(reports)
	return nil
}

func renderReports(reports []domain.Report) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"ID", "Disciple", "Date", "Status", "Reviewed", "Activities", "Comment"})
	for _, r := range reports {
		tw.AppendRow(table.Row{r.ID, r.SubjectID, mapper.FormatDate(r.Date), r.Status, r.Reviewed, formatActivities(r.Activities), r.Comment})
	}
	tw.Render()
}

func formatActivities(a map[string]any) string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, a[k]))
	}
	return strings.Join(parts, " ")
}
