// Package jobworker implements the long-lived worker actor: bound to one
// queue, carrying a stable runner-id, pulling exactly one job at a time
// from its Dispatcher and handing the outcome to the processor registry.
// Workers never import jobserver directly — they talk to whichever
// Dispatcher they were constructed with, which breaks the worker/server
// reference cycle the message-channel design would otherwise create.
package jobworker
