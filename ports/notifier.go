package ports

// DeprecationNotifier reports use of deprecated APIs
type DeprecationNotifier interface {
	Notify(message string)
}
