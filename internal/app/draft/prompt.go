package draft

import (
	"fmt"
	"strings"
)

// Prompts is the behavioural policy handed to the model. Its wording is
// configuration; only the turn layout is fixed here.
type Prompts struct {
	ReplySystem  string `mapstructure:"reply_system"`
	ReplyTask    string `mapstructure:"reply_task"`
	RefineSystem string `mapstructure:"refine_system"`
	RefineTask   string `mapstructure:"refine_task"`
}

func DefaultPrompts() Prompts {
	return Prompts{
		ReplySystem: "You assist a counselor who follows Byron Katie's Four Questions (The Work). " +
			"Stay empathetic and non-judgemental. Help the client examine a belief in this order:\n" +
			"1) Is it true?\n" +
			"2) Can you absolutely know that it's true?\n" +
			"3) How do you react when you believe that thought? What feelings, body sensations or actions follow?\n" +
			"4) Who would you be without the thought, or how else could you see the situation?\n" +
			"- Do not ask every question at once. Suggest the next step of exploration in 2-4 sentences and ask at most one question.\n" +
			"- If there are any signs of risk of harm to self or others, put safety first and point to local professional or emergency help.\n" +
			"- Avoid diagnoses, medical prescriptions and legal advice.",
		ReplyTask: "Using this approach, write a 2-4 sentence reply the counselor could send to the client as is.",
		RefineSystem: "You assist a counselor who follows Byron Katie's Four Questions. " +
			"Apply the counselor's feedback and propose a better 2-4 sentence reply to the client's message. " +
			"If there is any risk of harm to self or others, put safety guidance first.",
		RefineTask: "Improve the reply while keeping the same approach.",
	}
}

// Turns lays out the provider input for req.
func (p Prompts) Turns(req Request) []Turn {
	var user strings.Builder
	fmt.Fprintf(&user, "Client message: \"\"\"%s\"\"\"\n", req.Utterance)
	system, task := p.ReplySystem, p.ReplyTask
	if req.Kind == KindRefine {
		fmt.Fprintf(&user, "Counselor instruction: \"\"\"%s\"\"\"\n", req.Instruction)
		system, task = p.RefineSystem, p.RefineTask
	}
	user.WriteString(task)

	return []Turn{
		{Role: TurnSystem, Content: system},
		{Role: TurnUser, Content: user.String()},
	}
}
