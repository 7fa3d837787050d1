package sim

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"signalops-sim/internal/telemetry"
)

const defaultGreptimePort = 4001

type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter writes entity samples and objective effects to GreptimeDB
// through the ingester client. Tables are created on first write.
type GreptimeDBWriter struct {
	client      greptimeClient
	entityTable string
	effectTable string
	log         *slog.Logger
}

// NewGreptimeDBWriter connects to endpoint ("host" or "host:port").
func NewGreptimeDBWriter(endpoint, database string) (*GreptimeDBWriter, error) {
	host, port := endpoint, defaultGreptimePort
	if h, p, err := net.SplitHostPort(endpoint); err == nil {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("greptime endpoint %q: %w", endpoint, err)
		}
		host, port = h, n
	}
	cfg := greptime.NewConfig(host).WithPort(port).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return &GreptimeDBWriter{
		client:      client,
		entityTable: telemetry.EntityTableName,
		effectTable: telemetry.EffectTableName,
		log:         slog.Default(),
	}, nil
}

// Write inserts a single entity row.
func (w *GreptimeDBWriter) Write(row telemetry.EntityRow) error {
	return w.WriteBatch([]telemetry.EntityRow{row})
}

// WriteBatch inserts multiple entity rows.
func (w *GreptimeDBWriter) WriteBatch(rows []telemetry.EntityRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := table.New(w.entityTable)
	if err != nil {
		return err
	}
	for _, c := range []string{"session_id", "entity_id", "kind"} {
		if err := tbl.AddTagColumn(c, types.STRING); err != nil {
			return err
		}
	}
	for _, c := range []struct {
		name string
		typ  types.ColumnType
	}{
		{"mission_id", types.STRING},
		{"status", types.STRING},
		{"lat", types.FLOAT64},
		{"lon", types.FLOAT64},
		{"x", types.FLOAT64},
		{"y", types.FLOAT64},
		{"progress", types.FLOAT64},
	} {
		if err := tbl.AddFieldColumn(c.name, c.typ); err != nil {
			return err
		}
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return err
	}
	for _, r := range rows {
		if err := tbl.AddRow(r.SessionID, r.EntityID, r.Kind, r.MissionID, r.Status,
			r.Lat, r.Lon, r.X, r.Y, r.Progress, r.Timestamp); err != nil {
			return err
		}
	}
	return w.write(tbl, len(rows))
}

// WriteEffect inserts one objective transition.
func (w *GreptimeDBWriter) WriteEffect(row telemetry.EffectRow) error {
	return w.WriteEffects([]telemetry.EffectRow{row})
}

// WriteEffects inserts objective transitions. Activated and unlocked ids are
// stored comma separated.
func (w *GreptimeDBWriter) WriteEffects(rows []telemetry.EffectRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := table.New(w.effectTable)
	if err != nil {
		return err
	}
	for _, c := range []string{"session_id", "mission_id", "objective_id"} {
		if err := tbl.AddTagColumn(c, types.STRING); err != nil {
			return err
		}
	}
	for _, c := range []string{"state", "message", "activated", "unlocks"} {
		if err := tbl.AddFieldColumn(c, types.STRING); err != nil {
			return err
		}
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return err
	}
	for _, r := range rows {
		if err := tbl.AddRow(r.SessionID, r.MissionID, r.ObjectiveID, r.State, r.Message,
			strings.Join(r.Activated, ","), strings.Join(r.Unlocks, ","), r.Timestamp); err != nil {
			return err
		}
	}
	return w.write(tbl, len(rows))
}

func (w *GreptimeDBWriter) write(tbl *table.Table, n int) error {
	name, err := tbl.GetName()
	if err != nil {
		return fmt.Errorf("greptime table name: %w", err)
	}
	if _, err := w.client.Write(context.Background(), tbl); err != nil {
		w.log.Error("greptime write failed", "table", name, "err", err)
		return fmt.Errorf("greptime write %s: %w", name, err)
	}
	w.log.Debug("greptime write", "table", name, "rows", n)
	return nil
}
