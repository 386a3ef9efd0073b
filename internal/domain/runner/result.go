package runner

// Kind tags a Result.
type Kind int

const (
	KindSuccess Kind = iota
	KindFailure
)

func (k Kind) String() string {
	if k == KindSuccess {
		return "success"
	}
	return "failure"
}

// Result is the outcome of one invocation. Output is set for successes,
// Message for failures; a failure Message is never empty.
type Result struct {
	Kind    Kind
	Output  string
	Message string
}

// Success builds a successful result.
func Success(output string) Result {
	return Result{Kind: KindSuccess, Output: output}
}

// Failure builds a failed result. An empty message is replaced so the
// invariant holds for every caller.
func Failure(message string) Result {
	if message == "" {
		message = "action failed without a message"
	}
	return Result{Kind: KindFailure, Message: message}
}

// OK reports whether the invocation succeeded.
func (r Result) OK() bool {
	return r.Kind == KindSuccess
}
