// Package jobregistry maps processor names to type-erased handlers that
// decode job arguments and invoke user logic. Static processor types are
// registered through the generic Processor[A, S] interface; the registry
// itself stores only the closure that results, so the dispatch boundary
// between jobserver/jobworker and user code never needs generics.
package jobregistry
