// Package domain holds the plain data types shared between the grading
// state store and the sandbox executor, so neither package needs to
// import the other to agree on shapes.
package domain

import "time"

// Test is one input/output case belonging to a Task.
type Test struct {
	TestID  int
	Name    string
	Input   string
	Output  string
	Public  bool
	Timeout *time.Duration
}

// Task is one gradeable unit of an Assignment.
type Task struct {
	TaskID      int
	Description string
	AllowEditor bool
	Placement   int
}

// Assignment groups Tasks under a deadline.
type Assignment struct {
	AssignmentID int
	Name         string
	Description  string
	Deadline     time.Time
	Tasks        []Task
}

// Status is the outcome tag for a single test execution.
type Status string

const (
	StatusPass    Status = "PASS"
	StatusFail    Status = "FAIL"
	StatusTimeout Status = "TIMED OUT"
	StatusErr     Status = "ERR"
)

// InputOutput is the (input, expected, found) disclosure triple attached
// only to public tests.
type InputOutput struct {
	Input    string `json:"input"`
	Expected string `json:"expected"`
	Found    string `json:"found"`
}

// TestResult is one test's outcome within a SubmissionResponse.
type TestResult struct {
	TestName    string       `json:"test_name"`
	Status      Status       `json:"status"`
	WasLate     bool         `json:"was_late,omitempty"`
	InputOutput *InputOutput `json:"input_output,omitempty"`
}

// SubmissionResponse is the full per-submission result envelope,
// serialized to TaskGrade.json_results.
type SubmissionResponse struct {
	Tests  []TestResult `json:"tests"`
	Passes int          `json:"passes"`
}

// Score computes passes/total, returning 0 for a zero-test task rather
// than dividing by zero.
func (r *SubmissionResponse) Score() float64 {
	if len(r.Tests) == 0 {
		return 0
	}
	return float64(r.Passes) / float64(len(r.Tests))
}

func (r *SubmissionResponse) pass(name string, wasLate bool) {
	r.Tests = append(r.Tests, TestResult{TestName: name, Status: StatusPass, WasLate: wasLate})
	r.Passes++
}

func (r *SubmissionResponse) pubPass(name string, wasLate bool, input, expected, found string) {
	r.Tests = append(r.Tests, TestResult{
		TestName: name, Status: StatusPass, WasLate: wasLate,
		InputOutput: &InputOutput{Input: input, Expected: expected, Found: found},
	})
	r.Passes++
}

func (r *SubmissionResponse) fail(name string) {
	r.Tests = append(r.Tests, TestResult{TestName: name, Status: StatusFail})
}

func (r *SubmissionResponse) pubFail(name string, input, expected, found string) {
	r.Tests = append(r.Tests, TestResult{
		TestName: name, Status: StatusFail,
		InputOutput: &InputOutput{Input: input, Expected: expected, Found: found},
	})
}

func (r *SubmissionResponse) timeout(name string) {
	r.Tests = append(r.Tests, TestResult{TestName: name, Status: StatusTimeout})
}

func (r *SubmissionResponse) pubTimeout(name string, input, expected string) {
	r.Tests = append(r.Tests, TestResult{
		TestName: name, Status: StatusTimeout,
		InputOutput: &InputOutput{Input: input, Expected: expected},
	})
}

func (r *SubmissionResponse) err(name string) {
	r.Tests = append(r.Tests, TestResult{TestName: name, Status: StatusErr})
}

func (r *SubmissionResponse) pubErr(name string, input, expected string) {
	r.Tests = append(r.Tests, TestResult{
		TestName: name, Status: StatusErr,
		InputOutput: &InputOutput{Input: input, Expected: expected},
	})
}

// RecordOutcome appends the correctly-shaped TestResult for one test,
// given whether it ran to completion, timed out, or errored, and whether
// its output matched — public tests get the disclosure triple, private
// tests never do.
func (r *SubmissionResponse) RecordOutcome(test Test, wasLate bool, stdout string, timedOut bool, execErr error) {
	switch {
	case timedOut:
		if test.Public {
			r.pubTimeout(test.Name, test.Input, test.Output)
		} else {
			r.timeout(test.Name)
		}
	case execErr != nil:
		if test.Public {
			r.pubErr(test.Name, test.Input, test.Output)
		} else {
			r.err(test.Name)
		}
	case stdout == test.Output:
		if test.Public {
			r.pubPass(test.Name, wasLate, test.Input, test.Output, stdout)
		} else {
			r.pass(test.Name, wasLate)
		}
	default:
		if test.Public {
			r.pubFail(test.Name, test.Input, test.Output, stdout)
		} else {
			r.fail(test.Name)
		}
	}
}
