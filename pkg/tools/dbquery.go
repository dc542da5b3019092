package tools

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/agenthub/agenthub/pkg/config"
)

// DBQueryToolConfig is the kind-specific configuration of DB_QUERY tools.
// Query is a pre-defined template; user input only ever binds as values.
type DBQueryToolConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`

	// Query uses {param} placeholders. {tenant_id} binds the caller's
	// tenant, everything else binds from tool arguments.
	Query string `mapstructure:"query"`

	MaxRows int `mapstructure:"max_rows"`
}

// DBQueryAdapter runs a parameterized read-only query. The template is
// fixed at configuration time, so callers can influence values but never
// the query shape.
type DBQueryAdapter struct {
	spec    config.ToolSpec
	cfg     DBQueryToolConfig
	db      *sql.DB
	dialect string
}

var _ Adapter = (*DBQueryAdapter)(nil)

func NewDBQueryAdapter(spec config.ToolSpec) (*DBQueryAdapter, error) {
	var cfg DBQueryToolConfig
	if err := mapstructure.Decode(spec.Config, &cfg); err != nil {
		return nil, fmt.Errorf("tool '%s': invalid config: %w", spec.Name, err)
	}
	if cfg.Driver == "" || cfg.DSN == "" {
		return nil, fmt.Errorf("tool '%s': driver and dsn are required", spec.Name)
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("tool '%s': failed to open database: %w", spec.Name, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("tool '%s': failed to connect: %w", spec.Name, err)
	}

	adapter, err := NewDBQueryAdapterFromDB(spec, cfg, db, dialectForDriver(cfg.Driver))
	if err != nil {
		db.Close()
		return nil, err
	}
	return adapter, nil
}

// NewDBQueryAdapterFromDB wraps an existing connection, used when the
// caller manages the pool.
func NewDBQueryAdapterFromDB(spec config.ToolSpec, cfg DBQueryToolConfig, db *sql.DB, dialect string) (*DBQueryAdapter, error) {
	if spec.Kind != config.ToolDBQuery {
		return nil, fmt.Errorf("tool '%s': kind %s is not DB_QUERY", spec.Name, spec.Kind)
	}
	if err := validateQueryTemplate(cfg.Query); err != nil {
		return nil, fmt.Errorf("tool '%s': %w", spec.Name, err)
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 100
	}
	return &DBQueryAdapter{spec: spec, cfg: cfg, db: db, dialect: dialect}, nil
}

func dialectForDriver(driver string) string {
	switch driver {
	case "sqlite3":
		return "sqlite"
	case "mysql":
		return "mysql"
	default:
		return "postgres"
	}
}

func validateQueryTemplate(query string) error {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return fmt.Errorf("query template is required")
	}
	upper := strings.ToUpper(trimmed)
	if !strings.HasPrefix(upper, "SELECT") && !strings.HasPrefix(upper, "WITH") {
		return fmt.Errorf("query template must be read-only")
	}
	if strings.Contains(trimmed, ";") {
		return fmt.Errorf("query template must be a single statement")
	}
	return nil
}

func (a *DBQueryAdapter) Name() string          { return a.spec.Name }
func (a *DBQueryAdapter) Kind() config.ToolKind { return a.spec.Kind }

func (a *DBQueryAdapter) Execute(ctx context.Context, args map[string]any, auth AuthContext) (*Result, error) {
	query, binds, err := a.bindQuery(args, auth)
	if err != nil {
		return nil, &ToolExecutionError{Tool: a.spec.Name, Err: err}
	}

	rows, err := a.db.QueryContext(ctx, query, binds...)
	if err != nil {
		return nil, &ToolExecutionError{Tool: a.spec.Name, Err: fmt.Errorf("query failed: %w", err)}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, &ToolExecutionError{Tool: a.spec.Name, Err: err}
	}

	results := make([]map[string]any, 0)
	for rows.Next() {
		if len(results) >= a.cfg.MaxRows {
			break
		}
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, &ToolExecutionError{Tool: a.spec.Name, Err: err}
		}
		row := make(map[string]any, len(columns))
		for i, column := range columns {
			if b, ok := values[i].([]byte); ok {
				row[column] = string(b)
			} else {
				row[column] = values[i]
			}
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &ToolExecutionError{Tool: a.spec.Name, Err: err}
	}

	content, err := json.Marshal(results)
	if err != nil {
		return nil, &ToolExecutionError{Tool: a.spec.Name, Err: err}
	}

	return &Result{
		Content:  string(content),
		Data:     results,
		Metadata: map[string]any{"row_count": len(results)},
	}, nil
}

// bindQuery replaces {param} placeholders with driver placeholders in
// template order and collects the matching bind values. {tenant_id} always
// binds the authenticated tenant, never an argument.
func (a *DBQueryAdapter) bindQuery(args map[string]any, auth AuthContext) (string, []any, error) {
	var binds []any
	var missing []string

	query := endpointPlaceholder.ReplaceAllStringFunc(a.cfg.Query, func(match string) string {
		param := match[1 : len(match)-1]

		if param == "tenant_id" {
			binds = append(binds, auth.TenantID)
		} else {
			value, ok := args[param]
			if !ok {
				missing = append(missing, param)
				return match
			}
			binds = append(binds, value)
		}

		if a.dialect == "postgres" {
			return fmt.Sprintf("$%d", len(binds))
		}
		return "?"
	})

	if len(missing) > 0 {
		return "", nil, fmt.Errorf("query parameters not bound: %s", strings.Join(missing, ", "))
	}
	return query, binds, nil
}

func (a *DBQueryAdapter) Close() error {
	return a.db.Close()
}
