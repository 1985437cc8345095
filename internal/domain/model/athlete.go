package model

// Sex of an athlete as recorded in the profile.
type Sex string

const (
	SexFemale Sex = "female"
	SexMale   Sex = "male"
	SexOther  Sex = "other"
)

// AthleteProfile carries the demographic inputs of an assessment.
type AthleteProfile struct {
	AthleteID string  `json:"athlete_id" yaml:"athlete_id"`
	Sex       Sex     `json:"sex" yaml:"sex"`
	Age       int     `json:"age" yaml:"age"`
	BMI       float64 `json:"bmi" yaml:"bmi"`
	Rural     bool    `json:"rural" yaml:"rural"`
}
