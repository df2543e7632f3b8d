package wizard

import (
	"fmt"
	"strings"

	"github.com/yuriy-kovalchuk/yk-wildcard-bot/internal/dns"
)

// Actions carried by the confirmation buttons. The callback data is the
// action followed by the session id, see ChoiceData.
const (
	ChoiceConfirm = "confirm_yes"
	ChoiceCancel  = "confirm_no"
)

const choiceSep = ":"

// ChoiceData builds the callback data for action on session sessionID.
func ChoiceData(action, sessionID string) string {
	return action + choiceSep + sessionID
}

func parseChoice(data string) (action, sessionID string) {
	action, sessionID, _ = strings.Cut(data, choiceSep)
	return action, sessionID
}

// Choice is one button offered with a reply.
type Choice struct {
	Label string
	Data  string
}

// Reply is what the wizard wants sent back to the user. Choices is either
// empty or the Confirm/Cancel pair.
type Reply struct {
	Text    string
	Choices []Choice
}

func text(s string) Reply { return Reply{Text: s} }

func confirmChoices(sessionID string) []Choice {
	return []Choice{
		{Label: "✅ Yes, create record", Data: ChoiceData(ChoiceConfirm, sessionID)},
		{Label: "❌ Cancel", Data: ChoiceData(ChoiceCancel, sessionID)},
	}
}

const (
	msgSetupStarted   = "Let's set up a wildcard domain.\n\nFirst, send your Cloudflare API Token:"
	msgTokenTooShort  = "Invalid token. Please send your Cloudflare API Token again:"
	msgTokenRejected  = "The token is invalid or the API returned an error. Please send your Cloudflare API Token again:"
	msgNoZones        = "The token is valid but no zones are registered. Make sure the domain is added to Cloudflare, then send the API Token again:"
	msgZoneEmpty      = "Zone ID cannot be empty. Please send the Zone ID:"
	msgAskDomain      = "Send your domain name (e.g. example.com):"
	msgDomainInvalid  = "Invalid domain format. Please send a valid domain (e.g. example.com):"
	msgAskIP          = "Send the target IP address for the wildcard:"
	msgIPInvalid      = "Invalid IP address format. Please send a valid IP address:"
	msgUseButtons     = "Please confirm or cancel using the buttons above, or send /cancel."
	msgCancelled      = "❌ Setup cancelled."
	msgNothingPending = "There is no pending setup to confirm. Send /setup to start again."
	msgStaleChoice    = "These buttons belong to an earlier setup. Use the buttons on the latest confirmation, or send /cancel."
	msgNothingToStop  = "There is no setup in progress."
	msgDeleteNotReady = "Domain deletion is coming soon. For now, remove the record from the Cloudflare dashboard."
	msgNoDomains      = "You have no configured domains yet."
	msgUnknownCommand = "Unknown command. Send /help to see what I can do."
)

const helpText = `📖 Wildcard Domain Bot guide

1. Preparation:
   - Make sure the domain is registered on Cloudflare
   - Create a Cloudflare API Token with permissions:
     - Zone.DNS: Edit
     - Zone.Zone: Read

2. Wildcard setup:
   - Send /setup to start
   - Follow the steps:
     a. Send the Cloudflare API Token
     b. Send the domain's Zone ID
     c. Send the domain name (e.g. example.com)
     d. Send the target IP address
   - Send /cancel at any time to abort

3. Other commands:
   - /list - Show configured domains
   - /delete - Remove a wildcard configuration

🔐 Security:
   - Your API Token is never stored permanently
   - Session data is discarded once setup finishes`

func welcomeText(name string) string {
	var b strings.Builder
	b.WriteString("🤖 Wildcard Domain Bot\n\n")
	if name != "" {
		fmt.Fprintf(&b, "Hi %s! ", name)
	}
	b.WriteString("I set up wildcard domains on Cloudflare.\n\n")
	b.WriteString("🔧 Commands:\n")
	b.WriteString("/start - Start the bot\n")
	b.WriteString("/setup - Set up a new wildcard domain\n")
	b.WriteString("/list - Show configured domains\n")
	b.WriteString("/delete - Remove a domain configuration\n")
	b.WriteString("/cancel - Abort the current setup\n")
	b.WriteString("/help - Usage guide\n\n")
	b.WriteString("⚠️ Have a Cloudflare API Token with the right permissions ready.")
	return b.String()
}

func transportFailureText(err error) string {
	return fmt.Sprintf("An error occurred: %s. Please send your Cloudflare API Token again:", dns.Detail(err))
}

// zonesText lists zones as "• name (ID: id)" lines.
func zonesText(zones []dns.Zone) string {
	var b strings.Builder
	b.WriteString("✅ Token valid. Available zones:\n\n")
	for _, z := range zones {
		fmt.Fprintf(&b, "• %s (ID: %s)\n", z.Name, z.ID)
	}
	b.WriteString("\nNow send the Zone ID of the domain to configure:")
	return b.String()
}

// Summary formats the record a session is about to create.
func Summary(domain, ip string) string {
	return fmt.Sprintf("%s -> %s", dns.WildcardName(domain), ip)
}

func confirmText(domain, ip string) string {
	var b strings.Builder
	b.WriteString("📋 Confirm wildcard record:\n\n")
	fmt.Fprintf(&b, "• %s\n", Summary(domain, ip))
	fmt.Fprintf(&b, "• Domain: %s\n", dns.WildcardName(domain))
	fmt.Fprintf(&b, "• IP Address: %s\n\n", ip)
	b.WriteString("Do you want to continue?")
	return b.String()
}

func createdText(domain, ip, recordID string) string {
	var b strings.Builder
	b.WriteString("✅ Wildcard record created!\n\n")
	fmt.Fprintf(&b, "• Domain: %s\n", dns.WildcardName(domain))
	fmt.Fprintf(&b, "• IP Address: %s\n", ip)
	fmt.Fprintf(&b, "• Record ID: %s\n\n", recordID)
	b.WriteString("The wildcard domain now points to the given IP address.")
	return b.String()
}

func createFailedText(err error) string {
	if dns.KindOf(err) == dns.KindTransportError {
		return fmt.Sprintf("❌ An error occurred: %s\n\nSend /setup to try again.", dns.Detail(err))
	}
	return fmt.Sprintf("❌ Failed to create record: %s\n\nSend /setup to try again.", dns.Detail(err))
}

func domainsText(names []string, lookup func(string) (string, bool)) string {
	var b strings.Builder
	b.WriteString("📋 Configured domains:\n\n")
	for _, n := range names {
		if ip, ok := lookup(n); ok && ip != "" {
			fmt.Fprintf(&b, "• %s -> %s\n", n, ip)
			continue
		}
		fmt.Fprintf(&b, "• %s\n", n)
	}
	return strings.TrimSuffix(b.String(), "\n")
}
