package ledger

import (
	"fmt"
	"unicode/utf8"

	"github.com/roach88/quorum/internal/ir"
)

// Instruction is one transition request body. Args is the canonical
// argument object written to the journal; DecodeInstruction inverts it.
type Instruction interface {
	Op() ir.Op
	Args() ir.IRObject
	apply(u *unit) (ir.Address, error)
}

// InitializeCommunity creates a community named Name.
type InitializeCommunity struct {
	Name        string
	Description string
}

func (InitializeCommunity) Op() ir.Op { return ir.OpInitializeCommunity }

func (i InitializeCommunity) Args() ir.IRObject {
	return ir.IRObject{
		"name":        ir.IRString(i.Name),
		"description": ir.IRString(i.Description),
	}
}

// JoinCommunity requests membership of Community.
type JoinCommunity struct {
	Community ir.Address
}

func (JoinCommunity) Op() ir.Op { return ir.OpJoinCommunity }

func (i JoinCommunity) Args() ir.IRObject {
	return ir.IRObject{"community": i.Community.IR()}
}

// ApproveMembership approves Member's membership of Community.
type ApproveMembership struct {
	Community ir.Address
	Member    ir.Address
}

func (ApproveMembership) Op() ir.Op { return ir.OpApproveMembership }

func (i ApproveMembership) Args() ir.IRObject {
	return ir.IRObject{
		"community": i.Community.IR(),
		"member":    i.Member.IR(),
	}
}

// CreatePoll opens a poll in Community that accepts votes until EndTime.
type CreatePoll struct {
	Community ir.Address
	Question  string
	Options   []string
	EndTime   int64
}

func (CreatePoll) Op() ir.Op { return ir.OpCreatePoll }

func (i CreatePoll) Args() ir.IRObject {
	return ir.IRObject{
		"community": i.Community.IR(),
		"question":  ir.IRString(i.Question),
		"options":   ir.StringArray(i.Options),
		"end_time":  ir.IRInt(i.EndTime),
	}
}

// CastVote votes for option OptionIndex on Poll.
type CastVote struct {
	Poll        ir.Address
	OptionIndex int
}

func (CastVote) Op() ir.Op { return ir.OpCastVote }

func (i CastVote) Args() ir.IRObject {
	return ir.IRObject{
		"poll":         i.Poll.IR(),
		"option_index": ir.IRInt(int64(i.OptionIndex)),
	}
}

// ClosePoll closes Poll.
type ClosePoll struct {
	Poll ir.Address
}

func (ClosePoll) Op() ir.Op { return ir.OpClosePoll }

func (i ClosePoll) Args() ir.IRObject {
	return ir.IRObject{"poll": i.Poll.IR()}
}

// CheckText rejects an instruction carrying text that is not valid UTF-8.
// Such text cannot be journaled as it was submitted, so the sequencer runs
// this check before assigning a seq. A bad community name is INVALID_NAME;
// any other bad text is INVALID_ARGS.
func CheckText(ins Instruction) error {
	switch i := ins.(type) {
	case InitializeCommunity:
		if !utf8.ValidString(i.Name) {
			return reject(CodeInvalidName, "name is not valid UTF-8")
		}
		if !utf8.ValidString(i.Description) {
			return reject(CodeInvalidArgs, "description is not valid UTF-8")
		}
	case CreatePoll:
		if !utf8.ValidString(i.Question) {
			return reject(CodeInvalidArgs, "question is not valid UTF-8")
		}
		for n, opt := range i.Options {
			if !utf8.ValidString(opt) {
				return reject(CodeInvalidArgs, "option %d is not valid UTF-8", n)
			}
		}
	}
	return nil
}

// DecodeInstruction rebuilds an instruction from its journaled op and args.
// Malformed arguments are rejected with INVALID_ARGS.
func DecodeInstruction(op ir.Op, args ir.IRObject) (Instruction, error) {
	ins, err := decodeInstruction(op, args)
	if err != nil {
		return nil, wrapReject(CodeInvalidArgs, err, "%s: %v", op, err)
	}
	return ins, nil
}

func decodeInstruction(op ir.Op, args ir.IRObject) (Instruction, error) {
	switch op {
	case ir.OpInitializeCommunity:
		name, err := args.String("name")
		if err != nil {
			return nil, err
		}
		desc, err := args.String("description")
		if err != nil {
			return nil, err
		}
		return InitializeCommunity{Name: name, Description: desc}, nil

	case ir.OpJoinCommunity:
		community, err := args.Address("community")
		if err != nil {
			return nil, err
		}
		return JoinCommunity{Community: community}, nil

	case ir.OpApproveMembership:
		community, err := args.Address("community")
		if err != nil {
			return nil, err
		}
		member, err := args.Address("member")
		if err != nil {
			return nil, err
		}
		return ApproveMembership{Community: community, Member: member}, nil

	case ir.OpCreatePoll:
		community, err := args.Address("community")
		if err != nil {
			return nil, err
		}
		question, err := args.String("question")
		if err != nil {
			return nil, err
		}
		options, err := args.Strings("options")
		if err != nil {
			return nil, err
		}
		endTime, err := args.Int("end_time")
		if err != nil {
			return nil, err
		}
		return CreatePoll{Community: community, Question: question, Options: options, EndTime: endTime}, nil

	case ir.OpCastVote:
		poll, err := args.Address("poll")
		if err != nil {
			return nil, err
		}
		index, err := args.Int("option_index")
		if err != nil {
			return nil, err
		}
		return CastVote{Poll: poll, OptionIndex: int(index)}, nil

	case ir.OpClosePoll:
		poll, err := args.Address("poll")
		if err != nil {
			return nil, err
		}
		return ClosePoll{Poll: poll}, nil

	default:
		return nil, fmt.Errorf("unknown op %q", op)
	}
}
