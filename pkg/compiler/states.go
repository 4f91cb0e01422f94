package compiler

import "fmt"

// parseState is a state of the definition-body parser.
type parseState int

const (
	stateDefinition parseState = iota
	stateDefinitionBody
	stateLiteral
	stateLiteralBackslash
	stateLiteralComplete
	stateRegex
	stateRegexSpace
	stateCompositeID
	stateCompositeIDSpace
	stateSequenceID
	stateSequenceIDSpace
	stateSequenceIDStar
	stateSequenceIDPlus
	stateOr
	stateOrID
	stateOrIDSpace
	stateOrIDStar
	stateOrIDPlus
	stateRule
	stateComplete
	stateError

	numStates
)

var stateNames = [...]string{
	stateDefinition:       "Definition",
	stateDefinitionBody:   "DefinitionBody",
	stateLiteral:          "Literal",
	stateLiteralBackslash: "LiteralBackslash",
	stateLiteralComplete:  "LiteralComplete",
	stateRegex:            "Regex",
	stateRegexSpace:       "RegexSpace",
	stateCompositeID:      "CompositeId",
	stateCompositeIDSpace: "CompositeIdSpace",
	stateSequenceID:       "SequenceId",
	stateSequenceIDSpace:  "SequenceIdSpace",
	stateSequenceIDStar:   "SequenceIdStar",
	stateSequenceIDPlus:   "SequenceIdPlus",
	stateOr:               "Or",
	stateOrID:             "OrId",
	stateOrIDSpace:        "OrIdSpace",
	stateOrIDStar:         "OrIdStar",
	stateOrIDPlus:         "OrIdPlus",
	stateRule:             "Rule",
	stateComplete:         "Complete",
	stateError:            "Error",
}

func (s parseState) String() string {
	if int(s) >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("parseState(%d)", int(s))
}

// action is the side effect run when a transition fires.
type action int

const (
	doNothing action = iota
	doOpenLiteral
	doAppendLiteral
	doAppendRegex
	doSaveSpace
	doResumeRegex
	doStartComposite
	doAppendReference
	doStar
	doPlus
	doAlternate
	doOpenAction
	doRegexBrace
	doNestAction
	doCloseAction
	doAppendAction
	doComplete
	doReject
)

// anyToken is the wildcard trigger; it is tried after every explicit row.
const anyToken = NoToken

type transition struct {
	on   TokenType
	next parseState
	do   action
}

// lexiconSet picks the rule list the parser tokenizes with in a state.
type lexiconSet int

const (
	useAll lexiconSet = iota
	useSingle
)

type stateRow struct {
	lexicon     lexiconSet
	transitions []transition
}

// Transitions that end a composite body: a newline completes it, an opening
// brace starts the rule action.
var compositeEnd = []transition{
	{Newline, stateComplete, doComplete},
	{LBrace, stateRule, doOpenAction},
}

func rows(ts ...[]transition) []transition {
	var out []transition
	for _, t := range ts {
		out = append(out, t...)
	}
	return out
}

// table is the body parser: for each state, the rows tried in order.
var table = [numStates]stateRow{
	stateDefinition: {transitions: []transition{
		{Space, stateDefinitionBody, doNothing},
		{anyToken, stateError, doReject},
	}},
	stateDefinitionBody: {transitions: []transition{
		{Identifier, stateCompositeID, doStartComposite},
		{Quote, stateLiteral, doOpenLiteral},
		{LBrace, stateRegex, doAppendRegex},
		{Newline, stateError, doReject},
		{anyToken, stateRegex, doAppendRegex},
	}},
	stateLiteral: {transitions: []transition{
		{Quote, stateLiteralComplete, doNothing},
		{Backslash, stateLiteralBackslash, doNothing},
		{Newline, stateError, doReject},
		{anyToken, stateLiteral, doAppendLiteral},
	}},
	stateLiteralBackslash: {lexicon: useSingle, transitions: []transition{
		{anyToken, stateLiteral, doAppendLiteral},
	}},
	stateLiteralComplete: {transitions: []transition{
		{Space, stateLiteralComplete, doNothing},
		{LBrace, stateRule, doOpenAction},
		{Newline, stateComplete, doComplete},
		{anyToken, stateError, doReject},
	}},
	stateRegex: {transitions: []transition{
		{Space, stateRegexSpace, doSaveSpace},
		{LBrace, stateRule, doRegexBrace},
		{Newline, stateComplete, doComplete},
		{anyToken, stateRegex, doAppendRegex},
	}},
	stateRegexSpace: {transitions: []transition{
		{LBrace, stateRule, doOpenAction},
		{Newline, stateComplete, doComplete},
		{anyToken, stateRegex, doResumeRegex},
	}},
	stateCompositeID: {transitions: rows(
		[]transition{
			{Space, stateCompositeIDSpace, doNothing},
			{Star, stateSequenceIDStar, doStar},
			{Plus, stateSequenceIDPlus, doPlus},
			{Or, stateOr, doAlternate},
		},
		compositeEnd,
		[]transition{{anyToken, stateError, doReject}},
	)},
	stateCompositeIDSpace: {transitions: rows(
		[]transition{
			{Identifier, stateSequenceID, doAppendReference},
			{Or, stateOr, doAlternate},
		},
		compositeEnd,
		[]transition{{anyToken, stateError, doReject}},
	)},
	stateSequenceID: {transitions: rows(
		[]transition{
			{Space, stateSequenceIDSpace, doNothing},
			{Star, stateSequenceIDStar, doStar},
			{Plus, stateSequenceIDPlus, doPlus},
		},
		compositeEnd,
		[]transition{{anyToken, stateError, doReject}},
	)},
	stateSequenceIDSpace: {transitions: rows(
		[]transition{
			{Identifier, stateSequenceID, doAppendReference},
			{Or, stateOr, doAlternate},
		},
		compositeEnd,
		[]transition{{anyToken, stateError, doReject}},
	)},
	stateSequenceIDStar: {transitions: rows(
		[]transition{
			{Space, stateSequenceIDSpace, doNothing},
			{Or, stateOr, doAlternate},
		},
		compositeEnd,
		[]transition{{anyToken, stateError, doReject}},
	)},
	stateSequenceIDPlus: {transitions: rows(
		[]transition{
			{Space, stateSequenceIDSpace, doNothing},
			{Or, stateOr, doAlternate},
		},
		compositeEnd,
		[]transition{{anyToken, stateError, doReject}},
	)},
	stateOr: {transitions: []transition{
		{Space, stateOr, doNothing},
		{Identifier, stateOrID, doAppendReference},
		{anyToken, stateError, doReject},
	}},
	stateOrID: {transitions: rows(
		[]transition{
			{Space, stateOrIDSpace, doNothing},
			{Star, stateOrIDStar, doStar},
			{Plus, stateOrIDPlus, doPlus},
			{Or, stateOr, doNothing},
		},
		compositeEnd,
		[]transition{{anyToken, stateError, doReject}},
	)},
	stateOrIDSpace: {transitions: rows(
		[]transition{{Or, stateOr, doNothing}},
		compositeEnd,
		[]transition{{anyToken, stateError, doReject}},
	)},
	stateOrIDStar: {transitions: rows(
		[]transition{
			{Space, stateOrIDSpace, doNothing},
			{Or, stateOr, doNothing},
		},
		compositeEnd,
		[]transition{{anyToken, stateError, doReject}},
	)},
	stateOrIDPlus: {transitions: rows(
		[]transition{
			{Space, stateOrIDSpace, doNothing},
			{Or, stateOr, doNothing},
		},
		compositeEnd,
		[]transition{{anyToken, stateError, doReject}},
	)},
	stateRule: {transitions: []transition{
		{LBrace, stateRule, doNestAction},
		{RBrace, stateRule, doCloseAction},
		{anyToken, stateRule, doAppendAction},
	}},
	stateComplete: {},
	stateError:    {},
}

// lookup returns the transition for tt in state s: the first explicit row
// matching tt, else the wildcard row.
func lookup(s parseState, tt TokenType) (transition, bool) {
	if s < 0 || s >= numStates {
		return transition{}, false
	}
	var wildcard *transition
	for i := range table[s].transitions {
		t := &table[s].transitions[i]
		if t.on == anyToken {
			if wildcard == nil {
				wildcard = t
			}
			continue
		}
		if t.on == tt {
			return *t, true
		}
	}
	if wildcard != nil {
		return *wildcard, true
	}
	return transition{}, false
}
