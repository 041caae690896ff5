package core

// Logger is any service that can log messages.
// args are expected to be: error, map[string]interface{} (extras) or a logged-in user identity.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Person identifies the user on whose behalf something is logged.
type Person struct {
	ID       string
	Username string
	Email    string
}
