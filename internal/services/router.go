package services

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// Command is the result of matching free text against the one-shot grammars.
// It is one of AddItemCommand, EditPriceCommand, ToggleAvailabilityCommand,
// SearchCommand or NoMatch.
type Command interface {
	isCommand()
}

// AddItemCommand starts the add-item dialogue. Fields missing from the text are nil.
type AddItemCommand struct {
	Name      *string
	Price     *decimal.Decimal
	Available *bool
}

// EditPriceCommand sets the price of every item whose name contains NameQuery.
type EditPriceCommand struct {
	NameQuery string
	Price     decimal.Decimal
}

// ToggleAvailabilityCommand enables or disables every item whose name contains NameQuery.
type ToggleAvailabilityCommand struct {
	NameQuery string
	Enable    bool
}

// SearchCommand looks items up by name.
type SearchCommand struct {
	Query string
}

// NoMatch means no grammar recognized the text.
type NoMatch struct{}

func (AddItemCommand) isCommand()            {}
func (EditPriceCommand) isCommand()          {}
func (ToggleAvailabilityCommand) isCommand() {}
func (SearchCommand) isCommand()             {}
func (NoMatch) isCommand()                   {}

var (
	addItemRe   = regexp.MustCompile(`(?is)^(?:add|create)\s+(?:a\s+)?(?:new\s+)?item(?:\s+(.*))?$`)
	fieldRe     = regexp.MustCompile(`(?i)(?:^|[\s,;])(name|price|available|الاسم|السعر|متوفر)\s*[:=]`)
	editPriceRe = regexp.MustCompile(`(?is)^(?:edit|change|update|set)\s+(?:the\s+)?price\s+(?:of\s+|for\s+)?(\S.*?)\s+to\s+(\S+)$`)
	toggleRe    = regexp.MustCompile(`(?is)^(enable|activate|show|disable|deactivate|hide)\s+item\s+(\S.*)$`)
	searchRe    = regexp.MustCompile(`(?is)^search\s+(?:for\s+)?(\S.*)$`)
)

// ParseCommand matches text against the add-item, edit-price, toggle and search
// grammars in that order. The first match wins.
func ParseCommand(text string) Command {
	text = strings.TrimSpace(norm.NFKC.String(text))

	if m := addItemRe.FindStringSubmatch(text); m != nil {
		return parseAddItem(m[1])
	}
	if m := editPriceRe.FindStringSubmatch(text); m != nil {
		if price, ok := ParsePrice(m[2]); ok {
			return EditPriceCommand{NameQuery: strings.TrimSpace(m[1]), Price: price}
		}
	}
	if m := toggleRe.FindStringSubmatch(text); m != nil {
		verb := strings.ToLower(m[1])
		return ToggleAvailabilityCommand{
			NameQuery: strings.TrimSpace(m[2]),
			Enable:    verb == "enable" || verb == "activate" || verb == "show",
		}
	}
	if m := searchRe.FindStringSubmatch(text); m != nil {
		return SearchCommand{Query: strings.TrimSpace(m[1])}
	}
	return NoMatch{}
}

// parseAddItem reads labeled fields in any order. Unlabeled text before the
// first label is taken as the name. Values that fail to parse are left nil.
func parseAddItem(rest string) AddItemCommand {
	var cmd AddItemCommand
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return cmd
	}

	fields := make(map[string]string)
	locs := fieldRe.FindAllStringSubmatchIndex(rest, -1)
	for i, loc := range locs {
		label := labelKey(rest[loc[2]:loc[3]])
		end := len(rest)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		if _, seen := fields[label]; !seen {
			fields[label] = trimValue(rest[loc[1]:end])
		}
	}
	if len(locs) == 0 {
		fields["name"] = trimValue(rest)
	} else if lead := trimValue(rest[:locs[0][0]]); lead != "" {
		if _, ok := fields["name"]; !ok {
			fields["name"] = lead
		}
	}

	if name := fields["name"]; name != "" {
		cmd.Name = &name
	}
	if raw, ok := fields["price"]; ok {
		if price, ok := ParsePrice(raw); ok {
			cmd.Price = &price
		}
	}
	if raw, ok := fields["available"]; ok {
		if v, ok := ParseYesNo(raw); ok {
			cmd.Available = &v
		}
	}
	return cmd
}

func labelKey(label string) string {
	switch strings.ToLower(label) {
	case "name", "الاسم":
		return "name"
	case "price", "السعر":
		return "price"
	default:
		return "available"
	}
}

func trimValue(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == ';'
	})
}
