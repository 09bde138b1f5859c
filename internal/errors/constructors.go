package errors

// Convenience functions for common error patterns

// Config errors

func ConfigNotFound(path string) *SyncError {
	return New(CategoryConfig, SeverityFatal, "configuration file not found").
		WithContext("path", path)
}

func ConfigRequired(field string) *SyncError {
	return New(CategoryConfig, SeverityFatal, "required configuration missing").
		WithContext("field", field)
}

func ConfigInvalid(field, reason string) *SyncError {
	return New(CategoryConfig, SeverityFatal, "invalid configuration value").
		WithContext("field", field).
		WithContext("reason", reason)
}

func ConfigLoad(path string, cause error) *SyncError {
	return Wrap(cause, CategoryConfig, SeverityFatal, "failed to load configuration").
		WithContext("path", path)
}

func ValidationFailed(field, reason string) *SyncError {
	return New(CategoryValidation, SeverityFatal, "validation failed").
		WithContext("field", field).
		WithContext("reason", reason)
}

// Output directory errors

func NotADirectory(path string) *SyncError {
	return New(CategoryDirectory, SeverityFatal, "output path is not a directory").
		WithContext("path", path)
}

func DirectoryError(operation, path string, cause error) *SyncError {
	return Wrap(cause, CategoryDirectory, SeverityFatal, "output directory operation failed").
		WithContext("operation", operation).
		WithContext("path", path)
}

func NotInitialized(path string) *SyncError {
	return New(CategoryDirectory, SeverityFatal, "no change list found, run init first").
		WithContext("path", path)
}

func ChangeListExists(name string) *SyncError {
	return New(CategoryDirectory, SeverityFatal, "change list already published").
		WithContext("file", name)
}

func ArchiveParse(path string, cause error) *SyncError {
	return Wrap(cause, CategoryArchiveParse, SeverityFatal, "existing change list archive is unreadable").
		WithContext("path", path)
}

// Repository errors

func RepositoryAccess(operation string, cause error) *SyncError {
	return Wrap(cause, CategoryRepository, SeverityFatal, "repository access failed").
		WithContext("operation", operation)
}

// Serialization errors

func SerializationFailed(document string, cause error) *SyncError {
	return Wrap(cause, CategorySerialization, SeverityFatal, "document serialization failed").
		WithContext("document", document)
}

// Notification errors

func NotifyFailed(subject string, cause error) *SyncError {
	return Wrap(cause, CategoryNotify, SeverityWarning, "change notification failed").
		WithContext("subject", subject)
}

func NotFound(what, name string) *SyncError {
	return New(CategoryNotFound, SeverityWarning, what+" not found").
		WithContext("name", name)
}

// Internal errors

func InternalError(message string, cause error) *SyncError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}
