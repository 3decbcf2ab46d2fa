package common

import (
	"errors"
	"fmt"

	"oraclequest/domain/entities"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// BotError represents a structured error with user-facing and internal messages
type BotError struct {
	UserMessage string // Message shown to Discord user
	LogMessage  string // Internal message for logging
	Err         error  // Underlying error
}

func (e *BotError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.LogMessage, e.Err)
	}
	return e.LogMessage
}

func (e *BotError) Unwrap() error {
	return e.Err
}

// NewUserError creates an error for user-caused issues
func NewUserError(userMessage string, logMessage string) *BotError {
	return &BotError{
		UserMessage: userMessage,
		LogMessage:  logMessage,
	}
}

// NewSystemError creates an error for system issues (database, tree service, etc)
func NewSystemError(err error, logMessage string) *BotError {
	return &BotError{
		UserMessage: "Something went wrong. Please try again later.",
		LogMessage:  logMessage,
		Err:         err,
	}
}

// FromLedgerError turns a rejected transition into a user error. Errors
// outside the ledger taxonomy become system errors.
func FromLedgerError(err error, logMessage string) *BotError {
	var le *entities.LedgerError
	if !errors.As(err, &le) {
		return NewSystemError(err, logMessage)
	}
	return &BotError{
		UserMessage: UserMessageFor(le),
		LogMessage:  logMessage,
		Err:         err,
	}
}

// UserMessageFor phrases a ledger error for Discord
func UserMessageFor(le *entities.LedgerError) string {
	switch le {
	case entities.ErrAlreadyInitialized:
		return "You already have a profile."
	case entities.ErrNotInitialized:
		return "That profile, event or bet does not exist. Use `/profile create` if you have no profile yet."
	case entities.ErrUnauthorized:
		return "You are not allowed to do that."
	case entities.ErrEventAlreadyExists:
		return "An event with that ID already exists."
	case entities.ErrDuplicateBet:
		return "You already have a bet on this event."
	case entities.ErrDescriptionTooLong:
		return fmt.Sprintf("Description is too long (max %d characters).", entities.MaxDescriptionLenDirect)
	case entities.ErrProofRejected:
		return "State changed while your request was in flight. Please try again."
	}
	return le.Message + "."
}

// RespondWithError sends an error message as an interaction response
func RespondWithError(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: fmt.Sprintf("❌ %s", message),
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		log.Errorf("Error sending error response: %v", err)
	}
}

// FollowUpWithError sends an error message as a follow-up to a deferred interaction
func FollowUpWithError(s *discordgo.Session, i *discordgo.InteractionCreate, message string) {
	_, err := s.FollowupMessageCreate(i.Interaction, false, &discordgo.WebhookParams{
		Content: fmt.Sprintf("❌ %s", message),
		Flags:   discordgo.MessageFlagsEphemeral,
	})
	if err != nil {
		log.Errorf("Error sending follow-up error message: %v", err)
	}
}

// HandleError logs err and tells the user what went wrong
func HandleError(s *discordgo.Session, i *discordgo.InteractionCreate, err error, deferred bool) {
	userMessage := "Something went wrong. Please try again later."
	fields := log.Fields{
		"user_id": InteractionUserID(i),
		"command": i.ApplicationCommandData().Name,
		"error":   err.Error(),
	}

	var botErr *BotError
	if errors.As(err, &botErr) {
		userMessage = botErr.UserMessage
		fields["user_message"] = botErr.UserMessage
		// Rejected transitions are routine
		if botErr.Err == nil || isLedgerError(botErr.Err) {
			log.WithFields(fields).Warn(botErr.LogMessage)
		} else {
			log.WithFields(fields).Error(botErr.LogMessage)
		}
	} else {
		log.WithFields(fields).Error("Unexpected error in bot command")
	}

	if deferred {
		FollowUpWithError(s, i, userMessage)
	} else {
		RespondWithError(s, i, userMessage)
	}
}

func isLedgerError(err error) bool {
	var le *entities.LedgerError
	return errors.As(err, &le)
}
