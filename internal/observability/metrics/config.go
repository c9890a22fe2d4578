package metrics

// Config carries the constant labels applied to all instruments.
type Config struct {
	ServiceName string
	Environment string
}
