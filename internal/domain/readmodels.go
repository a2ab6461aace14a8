package domain

// AssignmentGrade is one student's aggregate score for an assignment,
// returned to instructors.
type AssignmentGrade struct {
	Name     string  `json:"name"`
	Username string  `json:"username"`
	Score    float64 `json:"score"`
}

// AssignmentInfo is an assignment summary row scoped to a class listing,
// including the requesting user's own score.
type AssignmentInfo struct {
	AssignmentID   int     `json:"assignment_id"`
	AssignmentName string  `json:"assignment_name"`
	Description    string  `json:"assignment_description,omitempty"`
	Deadline       string  `json:"assignment_deadline"`
	Score          float64 `json:"assignment_score"`
}

// ClassItem is a class a user is enrolled in or teaches.
type ClassItem struct {
	ClassNumber string `json:"class_number"`
	Description string `json:"class_description,omitempty"`
}

// InstructorInfo identifies an instructor of a class.
type InstructorInfo struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// UserInfo identifies a user by name, used for class-roster listings.
type UserInfo struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"user_name"`
}
