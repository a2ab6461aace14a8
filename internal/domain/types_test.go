package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubmissionResponse_Score_EmptyIsZero(t *testing.T) {
	r := &SubmissionResponse{}
	assert.Equal(t, 0.0, r.Score())
}

func TestSubmissionResponse_RecordOutcome_PublicPassDisclosesIO(t *testing.T) {
	r := &SubmissionResponse{}
	test := Test{Name: "t1", Input: "2 2", Output: "4", Public: true}

	r.RecordOutcome(test, false, "4", false, nil)

	assert.Equal(t, 1, r.Passes)
	assert.Equal(t, 1.0, r.Score())
	got := r.Tests[0]
	assert.Equal(t, StatusPass, got.Status)
	if assert.NotNil(t, got.InputOutput) {
		assert.Equal(t, "2 2", got.InputOutput.Input)
		assert.Equal(t, "4", got.InputOutput.Found)
	}
}

func TestSubmissionResponse_RecordOutcome_PrivateFailHidesIO(t *testing.T) {
	r := &SubmissionResponse{}
	test := Test{Name: "t1", Input: "2 2", Output: "4", Public: false}

	r.RecordOutcome(test, false, "5", false, nil)

	assert.Equal(t, 0, r.Passes)
	assert.Equal(t, StatusFail, r.Tests[0].Status)
	assert.Nil(t, r.Tests[0].InputOutput)
}

func TestSubmissionResponse_RecordOutcome_Timeout(t *testing.T) {
	r := &SubmissionResponse{}
	test := Test{Name: "t1", Input: "x", Output: "y", Public: false}

	r.RecordOutcome(test, false, "", true, nil)

	assert.Equal(t, StatusTimeout, r.Tests[0].Status)
}

func TestSubmissionResponse_RecordOutcome_Err(t *testing.T) {
	r := &SubmissionResponse{}
	test := Test{Name: "t1", Input: "x", Output: "y", Public: true}

	r.RecordOutcome(test, false, "", false, errors.New("boom"))

	assert.Equal(t, StatusErr, r.Tests[0].Status)
	assert.NotNil(t, r.Tests[0].InputOutput)
}

func TestSubmissionResponse_Score_FractionOfPasses(t *testing.T) {
	r := &SubmissionResponse{}
	r.RecordOutcome(Test{Name: "a", Output: "1"}, false, "1", false, nil)
	r.RecordOutcome(Test{Name: "b", Output: "1"}, false, "2", false, nil)

	assert.Equal(t, 0.5, r.Score())
}
