// Package runner executes one action descriptor as a child process.
//
// The interpreter is started with a discrete argument vector; nothing is
// joined into a shell string. Standard output and standard error are
// buffered separately and reported only after the child exits and both
// streams are drained. Output that is not UTF-8 (the console code page or
// UTF-16 from Windows PowerShell) is converted; UTF-8 passes through as is.
//
// Outcomes are reported as a tagged Result:
//
//	exit 0                     -> Success{Output: stdout, untrimmed}
//	exit != 0                  -> Failure{Message: stderr, or the exit error}
//	launch error (ENOENT, ...) -> Failure{Message: stderr, or the launch error}
//
// Run never panics and never returns an error; every path is a Result.
// Concurrent calls are independent child processes with no deduplication.
//
// The invoked script is treated as an external collaborator with a narrow
// contract: exit status 0 means success, and error text goes to stderr.
package runner
