package registry

import "fmt"

type ErrInvalidOrchestrator struct {
	msg string
}

func (e *ErrInvalidOrchestrator) Error() string {
	return e.msg
}

type ErrOrchestratorAlreadyRegistered struct {
	msg string
}

func (e *ErrOrchestratorAlreadyRegistered) Error() string {
	return e.msg
}

type ErrInvalidActivity struct {
	msg string
}

func (e *ErrInvalidActivity) Error() string {
	return e.msg
}

type ErrActivityAlreadyRegistered struct {
	msg string
}

func (e *ErrActivityAlreadyRegistered) Error() string {
	return e.msg
}

type ErrNotFound struct {
	Kind string
	Name string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s %q not registered", e.Kind, e.Name)
}
