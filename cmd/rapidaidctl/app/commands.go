package app

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/rapidaid-io/rapidaid/internal/dispatch/core/model"
)

type list[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
}

func newAmbulancesCommand(o *rootOptions) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:     "ambulances",
		Aliases: []string{"amb"},
		Short:   "List ambulances",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := url.Values{}
			if status != "" {
				q.Set("status", status)
			}
			var out list[*model.Ambulance]
			if err := o.client().get(cmd.Context(), "/ambulances", q, &out); err != nil {
				return err
			}
			return o.render(cmd.OutOrStdout(), out, func(t *uitable.Table) {
				t.AddRow("ID", "CALL SIGN", "STATUS", "EQUIPMENT", "HOSPITAL", "LOCATION")
				for _, a := range out.Data {
					loc := "-"
					if a.Location != nil {
						loc = a.Location.String()
					}
					t.AddRow(a.ID, a.CallSign, a.Status, a.EquipmentLevel, orDash(a.AssignedHospitalID), loc)
				}
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Only list ambulances with this status.")
	return cmd
}

func newHospitalsCommand(o *rootOptions) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "hospitals",
		Short: "List hospitals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := url.Values{}
			if status != "" {
				q.Set("status", status)
			}
			var out list[*model.Hospital]
			if err := o.client().get(cmd.Context(), "/hospitals", q, &out); err != nil {
				return err
			}
			return o.render(cmd.OutOrStdout(), out, func(t *uitable.Table) {
				t.AddRow("ID", "NAME", "STATUS", "CAPACITY", "SERVICES")
				for _, h := range out.Data {
					t.AddRow(h.ID, h.Name, h.Status, h.Capacity, strings.Join(h.Services, ","))
				}
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Only list hospitals with this status.")
	return cmd
}

func newRequestsCommand(o *rootOptions) *cobra.Command {
	var (
		status      string
		page, limit int
	)
	cmd := &cobra.Command{
		Use:     "requests",
		Aliases: []string{"req"},
		Short:   "List emergency requests, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q := url.Values{}
			if status != "" {
				q.Set("status", status)
			}
			q.Set("page", strconv.Itoa(page))
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}
			var out model.RequestPage
			if err := o.client().get(cmd.Context(), "/requests", q, &out); err != nil {
				return err
			}
			return o.render(cmd.OutOrStdout(), out, func(t *uitable.Table) {
				t.AddRow("ID", "STATUS", "AMBULANCE", "HOSPITAL", "RESERVED", "CREATED")
				for _, r := range out.Items {
					t.AddRow(r.ID, r.Status, orDash(r.AmbulanceID), orDash(r.HospitalID), r.AmbulanceReserved,
						r.CreatedAt.Local().Format("2006-01-02 15:04:05"))
				}
				t.AddRow("")
				t.AddRow(fmt.Sprintf("page %d, %d of %d", out.Page, len(out.Items), out.Total))
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Only list requests with this status.")
	cmd.Flags().IntVar(&page, "page", 1, "Page number, starting at 1.")
	cmd.Flags().IntVar(&limit, "limit", 0, "Page size. 0 uses the server default.")
	return cmd
}

func newNearestCommand(o *rootOptions) *cobra.Command {
	var (
		hospitalID int64
		lng, lat   float64
		limit      int
	)
	cmd := &cobra.Command{
		Use:   "nearest",
		Short: "List the ambulances nearest to a hospital or a point",
		Long: `List the available ambulances nearest to a hospital (--hospital) or to a
coordinate (--lng and --lat).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fs := cmd.Flags()
			byPoint := fs.Changed("lng") || fs.Changed("lat")
			if byPoint == fs.Changed("hospital") {
				return fmt.Errorf("pass either --hospital or both --lng and --lat")
			}

			var rows []model.AmbulanceDistance
			var out any
			if byPoint {
				if !fs.Changed("lng") || !fs.Changed("lat") {
					return fmt.Errorf("--lng and --lat must be passed together")
				}
				var res list[model.AmbulanceDistance]
				body := map[string]any{"longitude": lng, "latitude": lat, "limit": limit}
				if err := o.client().post(cmd.Context(), "/proximity/nearest-ambulances", body, &res); err != nil {
					return err
				}
				rows, out = res.Data, res
			} else {
				var res model.NearestAmbulances
				q := url.Values{"limit": {strconv.Itoa(limit)}}
				path := fmt.Sprintf("/proximity/hospital/%d/nearest", hospitalID)
				if err := o.client().get(cmd.Context(), path, q, &res); err != nil {
					return err
				}
				rows, out = res.Ambulances, res
			}

			return o.render(cmd.OutOrStdout(), out, func(t *uitable.Table) {
				t.AddRow("ID", "CALL SIGN", "EQUIPMENT", "DISTANCE (KM)", "ETA (MIN)")
				for _, a := range rows {
					t.AddRow(a.ID, a.CallSign, a.EquipmentLevel, fmt.Sprintf("%.2f", a.DistanceKm), a.EstimatedMinutes)
				}
			})
		},
	}
	fs := cmd.Flags()
	fs.Int64Var(&hospitalID, "hospital", 0, "Hospital to rank ambulances for.")
	fs.Float64Var(&lng, "lng", 0, "Longitude of the point.")
	fs.Float64Var(&lat, "lat", 0, "Latitude of the point.")
	fs.IntVar(&limit, "limit", 3, "Number of ambulances to return.")
	return cmd
}

func newPendingCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "Show the number of pending requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var out struct {
				Count int `json:"count"`
			}
			if err := o.client().get(cmd.Context(), "/requests/pending-count", nil, &out); err != nil {
				return err
			}
			return o.render(cmd.OutOrStdout(), out, func(t *uitable.Table) {
				t.AddRow("PENDING", out.Count)
			})
		},
	}
}
