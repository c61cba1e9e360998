package validate

import (
	"fmt"
	"regexp"
	"strings"
)

// Validator is a function that validates a string and returns an error if invalid
type Validator func(value string) error

// Field creates a labeled validator with a custom name for better error messages
func Field(name string, validators ...Validator) Validator {
	return func(value string) error {
		for _, v := range validators {
			if err := v(value); err != nil {
				if !strings.Contains(err.Error(), name) {
					return fmt.Errorf("%s: %w", name, err)
				}
				return err
			}
		}
		return nil
	}
}

// Compose chains multiple validators; the first error wins
func Compose(validators ...Validator) Validator {
	return func(value string) error {
		for _, v := range validators {
			if err := v(value); err != nil {
				return err
			}
		}
		return nil
	}
}

// Required ensures the field is not empty
func Required() Validator {
	return func(v string) error {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("this field is required")
		}
		return nil
	}
}

// MinLength checks minimum length
func MinLength(min int) Validator {
	return func(v string) error {
		if len(v) < min {
			return fmt.Errorf("must be at least %d characters", min)
		}
		return nil
	}
}

// MaxLength checks maximum length
func MaxLength(max int) Validator {
	return func(v string) error {
		if len(v) > max {
			return fmt.Errorf("must be no more than %d characters", max)
		}
		return nil
	}
}

// Matches checks if value matches a regex with a custom message
func Matches(pattern, message string) Validator {
	re := regexp.MustCompile(pattern)
	return func(v string) error {
		if !re.MatchString(v) {
			if message != "" {
				return fmt.Errorf("%s", message)
			}
			return fmt.Errorf("invalid format")
		}
		return nil
	}
}

// NoSpaces disallows spaces
func NoSpaces() Validator {
	return Matches(`^\S+$`, "must not contain spaces")
}

// RoomID validates a client-chosen room identifier.
func RoomID() Validator {
	return Field("roomId",
		Required(),
		MinLength(1),
		MaxLength(64),
		NoSpaces(),
		Matches(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`,
			"room id can only contain letters, numbers, dots, underscores, and hyphens"),
	)
}

// UserID validates the opaque client-supplied user identifier.
func UserID() Validator {
	return Field("userId",
		Required(),
		MaxLength(128),
		NoSpaces(),
	)
}

// EventName validates application-defined event names carried by room:emit.
func EventName() Validator {
	return Field("event",
		Required(),
		MaxLength(128),
		NoSpaces(),
	)
}
