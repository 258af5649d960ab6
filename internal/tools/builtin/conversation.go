package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/webwright/webwright/internal/core"
	"github.com/webwright/webwright/internal/tools"
)

func search() *tools.Descriptor {
	return tools.New("search").
		Doc(`Searches historic chat entries for a term and returns each hit with
its adjacent turn (the answer to a question, or the question behind an answer).
:param search_term: the term to search for
:param limit: maximum number of hits`).
		Param("search_term", tools.TypeString, "").
		Optional("limit", tools.TypeInteger, "", 5).
		Uses(tools.ContextLog).
		Handle(func(ctx context.Context, ic tools.InvocationContext, args tools.Args) (any, error) {
			matches, err := ic.Log.SimilaritySearch(ctx, args.String("search_term"), int(args.Int("limit")))
			if err != nil {
				return nil, err
			}
			results := make([]map[string]any, 0, len(matches))
			for _, m := range matches {
				r := map[string]any{"entry": m.Entry, "score": m.Score}
				if m.Adjacent != nil {
					r["adjacent"] = m.Adjacent
				}
				results = append(results, r)
			}
			return map[string]any{"success": true, "results": results}, nil
		}).
		MustBuild()
}

func chat() *tools.Descriptor {
	return tools.New("chat").
		Doc(`Returns the assistant's response to the user without doing anything else.
Use it when no other tool applies.
:param assistant_response: the message for the user`).
		Param("assistant_response", tools.TypeString, "").
		Handle(func(ctx context.Context, ic tools.InvocationContext, args tools.Args) (any, error) {
			return map[string]any{"success": true, "response": args.String("assistant_response")}, nil
		}).
		MustBuild()
}

func askLLM() *tools.Descriptor {
	return tools.New("ask_llm").
		Doc(`Asks a language model a self-contained question, for example to draft
code or text, optionally with the most recent conversation entries as context.
:param prompt: the question or instruction
:param recent: how many recent conversation entries to include`).
		Param("prompt", tools.TypeString, "").
		Optional("recent", tools.TypeInteger, "", 0).
		Uses(tools.ContextLLM, tools.ContextLog).
		Handle(func(ctx context.Context, ic tools.InvocationContext, args tools.Args) (any, error) {
			prompt := args.String("prompt")
			if n := int(args.Int("recent")); n > 0 {
				entries, err := ic.Log.Recent(ctx, n)
				if err != nil {
					return nil, err
				}
				prompt = withHistory(entries, prompt)
			}
			answer, err := ic.LLM.Complete(ctx, prompt)
			if err != nil {
				return nil, tools.Fail("model call failed", err)
			}
			return map[string]any{"success": true, "response": answer}, nil
		}).
		MustBuild()
}

func withHistory(entries []core.Entry, prompt string) string {
	var b strings.Builder
	b.WriteString("Recent conversation:\n")
	for _, e := range entries {
		text, ok := e.Text()
		if !ok {
			raw, _ := json.Marshal(e.Content)
			text = string(raw)
		}
		fmt.Fprintf(&b, "[%s] %s\n", e.Type, text)
	}
	b.WriteString("\n")
	b.WriteString(prompt)
	return b.String()
}
