package httpapi

// Config defines the local HTTP API settings.
type Config struct {
	Addr     string
	BasePath string
}
