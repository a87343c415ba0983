package orchestrator

import (
	"context"
	"strings"
	"time"

	"github.com/fintrack-io/docpipe/internal/common"
	"github.com/fintrack-io/docpipe/internal/llm"
	"github.com/fintrack-io/docpipe/internal/trace"
)

// repairRawLimit caps how much of the broken output is fed to the repair
// sub-agent.
const repairRawLimit = 12000

const repairSystemPrompt = `You repair malformed JSON emitted by another system. ` +
	`You are given broken, truncated or fenced output that was supposed to be a single JSON object. ` +
	`Emit ONLY one valid JSON object conforming to the schema below. ` +
	`Never use ellipsis or placeholder tokens; omit a field entirely if its value is unknown. ` +
	`Do not invent data that is not present in the input.`

func buildRepairPrompt(raw string) string {
	raw = common.Truncate(raw, repairRawLimit)
	var b strings.Builder
	b.WriteString("Schema:\n")
	b.WriteString(mustJSON(BuildOutputSchema()))
	b.WriteString("\n\nBroken output:\n")
	b.WriteString(raw)
	return b.String()
}

// repairOutput runs the single-shot, tool-free repair session. It is
// attempted at most once per run. Returns the repaired text and whether the
// session produced anything usable.
func (o *Orchestrator) repairOutput(ctx context.Context, raw string, tr *trace.Collector) (string, bool) {
	start := time.Now()
	sess, err := o.sessions.Open(ctx)
	if err != nil {
		tr.Record(trace.Entry{
			Action: "repair_agent",
			Note:   "open session: " + err.Error(),
		})
		o.logger.Error("orchestrator.repair.open_failed", "error", err)
		return "", false
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			o.logger.Warn("orchestrator.repair.close_failed", "error", cerr)
		}
	}()

	res, err := sess.Run(ctx, llm.SessionRequest{
		SystemPrompt: repairSystemPrompt,
		TaskPrompt:   buildRepairPrompt(raw),
	})
	entry := trace.Entry{
		Action:   "repair_agent",
		Duration: time.Since(start),
		Input:    map[string]any{"rawLength": len(raw)},
	}
	if err != nil {
		entry.Note = err.Error()
		tr.Record(entry)
		o.logger.Error("orchestrator.repair.failed", "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return "", false
	}
	entry.Output = map[string]any{"textLength": len(res.Text)}
	tr.Record(entry)
	o.logger.Info("orchestrator.repair.ok",
		"text_len", len(res.Text), "elapsed_ms", time.Since(start).Milliseconds())
	return res.Text, true
}
