package tools

import (
	"github.com/taskdeck/taskdeck/internal/types"
	"github.com/taskdeck/taskdeck/internal/validation"
)

// descriptors assembles the full tool table.
func descriptors() []*Descriptor {
	var all []*Descriptor
	all = append(all, lifecycleDescriptors()...)
	all = append(all, queryDescriptors()...)
	all = append(all, adminDescriptors()...)
	return all
}

func f64(v float64) *float64 { return &v }

// Shared parameter builders. The descriptor table is declarative so the
// constraints read off the page; these keep it compact.

func pStr(name string, required bool) ParamSpec {
	return ParamSpec{Name: name, Type: TypeString, Required: required}
}

func pStrLen(name string, required bool, min, max int) ParamSpec {
	return ParamSpec{Name: name, Type: TypeString, Required: required, MinLen: min, MaxLen: max}
}

func pEnum(name string, required bool, allowed ...string) ParamSpec {
	return ParamSpec{Name: name, Type: TypeString, Required: required, Enum: allowed}
}

func pInt(name string, required bool) ParamSpec {
	return ParamSpec{Name: name, Type: TypeInt, Required: required, Min: f64(1)}
}

func pFloat(name string, required bool, min float64) ParamSpec {
	return ParamSpec{Name: name, Type: TypeFloat, Required: required, Min: f64(min)}
}

func pBool(name string) ParamSpec {
	return ParamSpec{Name: name, Type: TypeBool}
}

func pArr(name string, required bool) ParamSpec {
	return ParamSpec{Name: name, Type: TypeArray, Required: required}
}

func pObj(name string) ParamSpec {
	return ParamSpec{Name: name, Type: TypeObject}
}

// pAgent is the acting agent, required on every mutation.
func pAgent() ParamSpec {
	return ParamSpec{Name: "agent_id", Type: TypeString, Required: true, MinLen: 1}
}

// pLimit bounds listing sizes; def applies when omitted.
func pLimit(def int64) ParamSpec {
	return ParamSpec{Name: "limit", Type: TypeInt, Min: f64(1), Max: f64(types.MaxQueryLimit), Default: def}
}

func pTaskID() ParamSpec { return pInt("task_id", true) }

func priorityEnum(required bool) ParamSpec {
	return pEnum("priority", required,
		string(types.PriorityLow), string(types.PriorityMedium),
		string(types.PriorityHigh), string(types.PriorityCritical))
}

func taskTypeEnum(required bool) ParamSpec {
	return pEnum("task_type", required,
		string(types.TypeConcrete), string(types.TypeAbstract), string(types.TypeEpic))
}

func titleParam(required bool) ParamSpec {
	return pStrLen("title", required, validation.MinTitleLen, validation.MaxTitleLen)
}

func instructionParam(required bool) ParamSpec {
	return ParamSpec{Name: "task_instruction", Type: TypeString, Required: required, MinLen: validation.MinInstructionLen}
}

func verificationParam(required bool) ParamSpec {
	return ParamSpec{Name: "verification_instruction", Type: TypeString, Required: required, MinLen: validation.MinInstructionLen}
}
