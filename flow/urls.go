package flow

import "fmt"

const (
	ListURL         = "/"
	ParticipatedURL = "/survey-participated/"
)

func InstructionsURL(surveyID int) string {
	return fmt.Sprintf("/survey/%d/instructions/", surveyID)
}

func ConfirmURL(responseID int) string {
	return fmt.Sprintf("/survey/%d/confirm/", responseID)
}

func TimeoutURL(responseID int) string {
	return fmt.Sprintf("/survey/%d/timeout/", responseID)
}
