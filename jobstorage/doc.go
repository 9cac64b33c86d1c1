// Package jobstorage defines the storage contract the dispatch server
// depends on, the derived operations (NewJob, RequestJob, ReturnJob) built
// on top of its primitives, and a named-backend registry so a host
// application can select a backend by name. See this package's
// InMemoryStorage and jobstorage/filestore for the two reference
// implementations.
package jobstorage
