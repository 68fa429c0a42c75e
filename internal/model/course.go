package model

import "time"

// Course is a taught course with a single instructor of record
type Course struct {
	ID           int64     `json:"id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	InstructorID int64     `json:"instructor_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// Enrollment is a student's registration in a course
type Enrollment struct {
	CourseID   int64     `json:"course_id"`
	StudentID  int64     `json:"student_id"`
	EnrolledAt time.Time `json:"enrolled_at"`
}
