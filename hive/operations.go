package hive

import (
	"encoding/json"
	"fmt"
	"sort"
)

type OpType string

const (
	OpVote           OpType = "vote"
	OpComment        OpType = "comment"
	OpTransfer       OpType = "transfer"
	OpCustomJSON     OpType = "custom_json"
	OpCommentOptions OpType = "comment_options"
)

// Operation ids are positions in the chain's operation variant.
var opIDs = map[OpType]uint64{
	OpVote:           0,
	OpComment:        1,
	OpTransfer:       2,
	OpCustomJSON:     18,
	OpCommentOptions: 19,
}

type Operation interface {
	Type() OpType
	Encode(e *Encoder) error
}

type VoteOperation struct {
	Voter    string `json:"voter"`
	Author   string `json:"author"`
	Permlink string `json:"permlink"`
	Weight   int16  `json:"weight"`
}

func (op *VoteOperation) Type() OpType { return OpVote }

func (op *VoteOperation) Encode(e *Encoder) error {
	e.String(op.Voter)
	e.String(op.Author)
	e.String(op.Permlink)
	e.Int16(op.Weight)
	return nil
}

type CommentOperation struct {
	ParentAuthor   string `json:"parent_author"`
	ParentPermlink string `json:"parent_permlink"`
	Author         string `json:"author"`
	Permlink       string `json:"permlink"`
	Title          string `json:"title"`
	Body           string `json:"body"`
	JSONMetadata   string `json:"json_metadata"`
}

func (op *CommentOperation) Type() OpType { return OpComment }

func (op *CommentOperation) Encode(e *Encoder) error {
	e.String(op.ParentAuthor)
	e.String(op.ParentPermlink)
	e.String(op.Author)
	e.String(op.Permlink)
	e.String(op.Title)
	e.String(op.Body)
	e.String(op.JSONMetadata)
	return nil
}

type TransferOperation struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount Asset  `json:"amount"`
	Memo   string `json:"memo"`
}

func (op *TransferOperation) Type() OpType { return OpTransfer }

func (op *TransferOperation) Encode(e *Encoder) error {
	e.String(op.From)
	e.String(op.To)
	if err := e.Asset(op.Amount); err != nil {
		return err
	}
	e.String(op.Memo)
	return nil
}

type CustomJSONOperation struct {
	RequiredAuths        []string `json:"required_auths"`
	RequiredPostingAuths []string `json:"required_posting_auths"`
	ID                   string   `json:"id"`
	JSON                 string   `json:"json"`
}

func (op *CustomJSONOperation) Type() OpType { return OpCustomJSON }

func (op *CustomJSONOperation) Encode(e *Encoder) error {
	e.Strings(op.RequiredAuths)
	e.Strings(op.RequiredPostingAuths)
	e.String(op.ID)
	e.String(op.JSON)
	return nil
}

// NewCustomJSON builds a posting-authority custom_json for username.
func NewCustomJSON(username, id string, payload interface{}) (*CustomJSONOperation, error) {
	var body string
	switch p := payload.(type) {
	case string:
		body = p
	case json.RawMessage:
		body = string(p)
	default:
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal custom_json payload: %w", err)
		}
		body = string(b)
	}
	if !json.Valid([]byte(body)) {
		return nil, fmt.Errorf("custom_json %s: payload is not valid json", id)
	}
	return &CustomJSONOperation{
		RequiredAuths:        []string{},
		RequiredPostingAuths: []string{username},
		ID:                   id,
		JSON:                 body,
	}, nil
}

type Beneficiary struct {
	Account string `json:"account"`
	Weight  uint16 `json:"weight"`
}

type CommentOptionsOperation struct {
	Author               string        `json:"author"`
	Permlink             string        `json:"permlink"`
	MaxAcceptedPayout    Asset         `json:"max_accepted_payout"`
	PercentHBD           uint16        `json:"percent_hbd"`
	AllowVotes           bool          `json:"allow_votes"`
	AllowCurationRewards bool          `json:"allow_curation_rewards"`
	Beneficiaries        []Beneficiary `json:"-"`
}

func (op *CommentOptionsOperation) Type() OpType { return OpCommentOptions }

type commentOptionsJSON struct {
	Author               string        `json:"author"`
	Permlink             string        `json:"permlink"`
	MaxAcceptedPayout    Asset         `json:"max_accepted_payout"`
	PercentHBD           uint16        `json:"percent_hbd"`
	AllowVotes           bool          `json:"allow_votes"`
	AllowCurationRewards bool          `json:"allow_curation_rewards"`
	Extensions           []interface{} `json:"extensions"`
}

func (op *CommentOptionsOperation) MarshalJSON() ([]byte, error) {
	out := commentOptionsJSON{
		Author:               op.Author,
		Permlink:             op.Permlink,
		MaxAcceptedPayout:    op.MaxAcceptedPayout,
		PercentHBD:           op.PercentHBD,
		AllowVotes:           op.AllowVotes,
		AllowCurationRewards: op.AllowCurationRewards,
		Extensions:           []interface{}{},
	}
	if len(op.Beneficiaries) > 0 {
		out.Extensions = append(out.Extensions, []interface{}{
			0, map[string]interface{}{"beneficiaries": op.sortedBeneficiaries()},
		})
	}
	return json.Marshal(out)
}

func (op *CommentOptionsOperation) UnmarshalJSON(b []byte) error {
	var in struct {
		commentOptionsJSON
		Extensions [][]json.RawMessage `json:"extensions"`
	}
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	op.Author = in.Author
	op.Permlink = in.Permlink
	op.MaxAcceptedPayout = in.MaxAcceptedPayout
	op.PercentHBD = in.PercentHBD
	op.AllowVotes = in.AllowVotes
	op.AllowCurationRewards = in.AllowCurationRewards
	op.Beneficiaries = nil
	for _, ext := range in.Extensions {
		if len(ext) != 2 {
			return fmt.Errorf("comment_options: malformed extension")
		}
		var body struct {
			Beneficiaries []Beneficiary `json:"beneficiaries"`
		}
		if err := json.Unmarshal(ext[1], &body); err != nil {
			return fmt.Errorf("comment_options extension: %w", err)
		}
		op.Beneficiaries = append(op.Beneficiaries, body.Beneficiaries...)
	}
	return nil
}

// Beneficiaries must be sorted by account name on chain.
func (op *CommentOptionsOperation) sortedBeneficiaries() []Beneficiary {
	out := append([]Beneficiary(nil), op.Beneficiaries...)
	sort.Slice(out, func(i, j int) bool { return out[i].Account < out[j].Account })
	return out
}

func (op *CommentOptionsOperation) Encode(e *Encoder) error {
	e.String(op.Author)
	e.String(op.Permlink)
	if err := e.Asset(op.MaxAcceptedPayout); err != nil {
		return err
	}
	e.Uint16(op.PercentHBD)
	e.Bool(op.AllowVotes)
	e.Bool(op.AllowCurationRewards)
	if len(op.Beneficiaries) == 0 {
		e.Uvarint(0)
		return nil
	}
	e.Uvarint(1)
	e.Uvarint(0) // comment_payout_beneficiaries
	bs := op.sortedBeneficiaries()
	e.Uvarint(uint64(len(bs)))
	for _, b := range bs {
		e.String(b.Account)
		e.Uint16(b.Weight)
	}
	return nil
}

func newOperation(t OpType) (Operation, error) {
	switch t {
	case OpVote:
		return &VoteOperation{}, nil
	case OpComment:
		return &CommentOperation{}, nil
	case OpTransfer:
		return &TransferOperation{}, nil
	case OpCustomJSON:
		return &CustomJSONOperation{}, nil
	case OpCommentOptions:
		return &CommentOptionsOperation{}, nil
	}
	return nil, fmt.Errorf("unsupported operation %q", t)
}

// Operations is an ordered operation set in its ["name", {...}] wire form.
type Operations []Operation

func (ops Operations) MarshalJSON() ([]byte, error) {
	out := make([][2]interface{}, 0, len(ops))
	for _, op := range ops {
		out = append(out, [2]interface{}{op.Type(), op})
	}
	return json.Marshal(out)
}

func (ops *Operations) UnmarshalJSON(b []byte) error {
	var raw [][2]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(Operations, 0, len(raw))
	for i, pair := range raw {
		var name OpType
		if err := json.Unmarshal(pair[0], &name); err != nil {
			return fmt.Errorf("operation %d: %w", i, err)
		}
		op, err := newOperation(name)
		if err != nil {
			return fmt.Errorf("operation %d: %w", i, err)
		}
		if err := json.Unmarshal(pair[1], op); err != nil {
			return fmt.Errorf("operation %d (%s): %w", i, name, err)
		}
		out = append(out, op)
	}
	*ops = out
	return nil
}

// EncodeOperation writes the variant tag followed by the body.
func EncodeOperation(e *Encoder, op Operation) error {
	id, ok := opIDs[op.Type()]
	if !ok {
		return fmt.Errorf("unsupported operation %q", op.Type())
	}
	e.Uvarint(id)
	return op.Encode(e)
}

// AffectedAccounts lists accounts whose cached state an operation set may
// change, in first-seen order.
func AffectedAccounts(ops Operations) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(names ...string) {
		for _, n := range names {
			if n != "" && !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	for _, op := range ops {
		switch o := op.(type) {
		case *VoteOperation:
			add(o.Voter, o.Author)
		case *CommentOperation:
			add(o.Author, o.ParentAuthor)
		case *TransferOperation:
			add(o.From, o.To)
		case *CustomJSONOperation:
			add(o.RequiredAuths...)
			add(o.RequiredPostingAuths...)
		case *CommentOptionsOperation:
			add(o.Author)
		}
	}
	return out
}
