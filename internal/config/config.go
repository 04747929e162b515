package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.  Policy fields carry the business rules
// that are deliberately configuration, not code: the deposit threshold,
// the unpaid-hold grace period and the cancellation lead time.
type Config struct {
    Env  string // application environment (e.g. "dev", "prod")
    Port string // HTTP port to listen on

    DBUser string // database username
    DBPass string // database password (optional)
    DBHost string // database host address
    DBPort string // database port number
    DBName string // database name

    JWTSecret string // secret used to verify access tokens issued by the account service

    DepositPercent    int // % of the total that confirms a pending reservation (default 50)
    PendingTTLMin     int // minutes an unpaid PENDING reservation survives (default 15)
    SweepIntervalSec  int // seconds between expiry sweeps (default 60)
    CancelLeadTimeMin int // customers cannot cancel closer to start than this, 0 = no restriction
    MinDurationMin    int // shortest bookable window in minutes (default 30)
    MaxDurationMin    int // longest bookable window in minutes (default 240)

    OpenHour  int // hall opening hour (UTC), frames availability queries with no explicit range
    CloseHour int // hall closing hour (UTC), exclusive
}

// Load reads configuration values from environment variables and returns
// a Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message; policy knobs fall
// back to documented defaults.
func Load() Config {
    return Config{
        Env:       must("APP_ENV"),      // environment (dev/test/prod)
        Port:      must("APP_PORT"),     // port to bind the HTTP server
        DBUser:    must("DB_USER"),      // database user
        DBPass:    os.Getenv("DB_PASS"), // database password (empty allowed)
        DBHost:    must("DB_HOST"),      // database host
        DBPort:    must("DB_PORT"),      // database port
        DBName:    must("DB_NAME"),      // database name
        JWTSecret: must("JWT_SECRET"),   // secret shared with the account service

        DepositPercent:    intOr("DEPOSIT_PERCENT", 50),
        PendingTTLMin:     intOr("PENDING_TTL_MIN", 15),
        SweepIntervalSec:  intOr("SWEEP_INTERVAL_SEC", 60),
        CancelLeadTimeMin: intOr("CANCEL_LEAD_TIME_MIN", 0),
        MinDurationMin:    intOr("MIN_DURATION_MIN", 30),
        MaxDurationMin:    intOr("MAX_DURATION_MIN", 240),

        OpenHour:  intOr("OPEN_HOUR", 10),
        CloseHour: intOr("CLOSE_HOUR", 23),
    }
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// intOr retrieves an integer environment variable, falling back to the
// default when unset.  A malformed value is fatal rather than silently
// ignored: a mistyped policy knob should not quietly change business
// behavior.
func intOr(key string, def int) int {
    s, ok := os.LookupEnv(key)
    if !ok || s == "" {
        return def
    }
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}
