// Package extensions hosts out-of-process extensions that intercept catalog operations.
//
// An extension is a separate program speaking length-prefixed JSON frames over a byte stream,
// normally its standard input and output. The host sends a load command first; the extension
// answers with its [ExtensionMetadata], including the hooks it wants. Afterwards the host sends
// one hook command per intercepted operation and waits for the matching response.
//
// # Failure handling
//
// Hooks are fail-open. A stage that errors, times out, exits or answers with a malformed frame
// is skipped and the pipeline continues with the unmodified input of that stage. Consecutive
// failures are counted per extension and the extension is disabled when the count reaches the
// configured threshold. [Host.Reset] re-enables it.
//
// Extension programs implement [Extension] and call [ServeStdio].
package extensions
