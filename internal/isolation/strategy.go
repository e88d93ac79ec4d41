package isolation

// Strategy is the closed set of physical tenant-isolation mechanisms. Exactly
// one strategy is active per running deployment; it is resolved once at
// startup and never changes afterward.
//
// Adding a strategy is a compile-time-checked change: every switch over
// Strategy in this package handles all members and fails loudly on anything
// else.
type Strategy uint8

const (
	// TableLevel shares one database and schema; every row carries a
	// tenant_id column and every query is predicated on it.
	TableLevel Strategy = iota + 1
	// SchemaLevel shares one database; each tenant owns a schema and the
	// connection's search_path selects it.
	SchemaLevel
	// DatabaseLevel gives each tenant its own database and connection pool.
	DatabaseLevel
)

// Wire values for the ISOLATION_STRATEGY configuration key.
const (
	strategyTableLevel    = "table_level"
	strategySchemaLevel   = "schema_level"
	strategyDatabaseLevel = "database_level"
)

// ParseStrategy is the single point where the configuration string enters the
// system. Anything outside the closed set is a configuration error.
func ParseStrategy(raw string) (Strategy, error) {
	switch raw {
	case strategyTableLevel:
		return TableLevel, nil
	case strategySchemaLevel:
		return SchemaLevel, nil
	case strategyDatabaseLevel:
		return DatabaseLevel, nil
	default:
		return 0, &ConfigurationError{
			Key:    "ISOLATION_STRATEGY",
			Value:  raw,
			Reason: "must be one of table_level, schema_level, database_level",
		}
	}
}

func (s Strategy) String() string {
	switch s {
	case TableLevel:
		return strategyTableLevel
	case SchemaLevel:
		return strategySchemaLevel
	case DatabaseLevel:
		return strategyDatabaseLevel
	default:
		return "unknown"
	}
}

// Valid reports whether s is a member of the closed set.
func (s Strategy) Valid() bool {
	switch s {
	case TableLevel, SchemaLevel, DatabaseLevel:
		return true
	default:
		return false
	}
}

// SharesPool reports whether the strategy rides on the shared data-plane
// pool. DatabaseLevel adapters own their pool; evicting them closes it, while
// shared-pool strategies only drop the cache entry.
func (s Strategy) SharesPool() bool {
	return s == TableLevel || s == SchemaLevel
}

// UsesRLS reports whether the strategy binds a database session variable so
// row-level security policies can enforce visibility on the server side.
func (s Strategy) UsesRLS() bool {
	return s == TableLevel || s == SchemaLevel
}
