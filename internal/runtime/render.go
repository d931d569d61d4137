package runtime

import (
	"time"

	"github.com/aretw0/concierge/pkg/domain"
)

// GenericErrorText is the assistant reply when a resolve call fails or times out.
const GenericErrorText = "Sorry, something went wrong while processing your request. Please try again."

// Render turns a reply into an assistant turn.
// A prompt with fields becomes a form, a card becomes a card, anything else is text.
func Render(reply domain.Reply, now time.Time) domain.Turn {
	turn := domain.Turn{
		Role:         domain.RoleAssistant,
		Presentation: domain.PresentText,
		CreatedAt:    now,
	}
	switch {
	case reply.Card != nil:
		card := *reply.Card
		turn.Presentation = domain.PresentCard
		turn.Card = &card
		turn.Content = card.Title
	case reply.Prompt != nil && len(reply.Prompt.Fields) > 0:
		prompt := *reply.Prompt
		turn.Presentation = domain.PresentForm
		turn.Form = &prompt
		turn.Content = prompt.Title
	case reply.Prompt != nil:
		turn.Content = reply.Prompt.Title
	default:
		turn.Content = reply.Text
	}
	return turn
}

// UserTurn renders the transcript entry of a submitted message.
func UserTurn(msg domain.Message, now time.Time) domain.Turn {
	return domain.Turn{
		Role:         domain.RoleUser,
		Content:      msg.Display(),
		Presentation: domain.PresentText,
		CreatedAt:    now,
	}
}

// ErrorTurn is the generic assistant error turn.
func ErrorTurn(now time.Time) domain.Turn {
	return domain.Turn{
		Role:         domain.RoleAssistant,
		Content:      GenericErrorText,
		Presentation: domain.PresentText,
		CreatedAt:    now,
	}
}
