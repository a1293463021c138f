package interp

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Phineas-bot/PHINSECOLANG/internal/eco"
)

// Operation cost estimates used to accumulate total_ops. savePower scales
// everything except the fixed per-statement dispatch cost.
const (
	costPrint     = 50
	costLoopCheck = 5
	costAssign    = 5
	costIO        = 200
	costOther     = 5
	costFuncCall  = 20
)

// Limits are the per-run safety caps.
type Limits struct {
	MaxSteps       int
	MaxLoop        int
	MaxTime        time.Duration
	MaxOutputChars int
	MaxFuncParams  int
	MaxCallDepth   int
}

// DefaultLimits returns the server-side safe defaults.
func DefaultLimits() Limits {
	return Limits{
		MaxSteps:       100_000,
		MaxLoop:        10_000,
		MaxTime:        1500 * time.Millisecond,
		MaxOutputChars: 5000,
		MaxFuncParams:  3,
		MaxCallDepth:   5,
	}
}

// Clamp applies requested overrides while never exceeding the receiver.
// Zero or negative requested values keep the server default.
func (l Limits) Clamp(req Limits) Limits {
	out := l
	if req.MaxSteps > 0 && req.MaxSteps < l.MaxSteps {
		out.MaxSteps = req.MaxSteps
	}
	if req.MaxLoop > 0 && req.MaxLoop < l.MaxLoop {
		out.MaxLoop = req.MaxLoop
	}
	if req.MaxTime > 0 && req.MaxTime < l.MaxTime {
		out.MaxTime = req.MaxTime
	}
	if req.MaxOutputChars > 0 && req.MaxOutputChars < l.MaxOutputChars {
		out.MaxOutputChars = req.MaxOutputChars
	}
	return out
}

// Result is the outcome of a run. Err is nil on success; Eco is nil on
// failure.
type Result struct {
	Output     string     `json:"output"`
	Warnings   []string   `json:"warnings"`
	Eco        *eco.Stats `json:"eco"`
	DurationMS float64    `json:"duration_ms"`
	Err        *Error     `json:"errors"`
}

// Options configures a new Interpreter. Zero values fall back to defaults.
type Options struct {
	Limits Limits
	Params eco.Params
	Clock  clockwork.Clock
}

// Interpreter executes EcoLang source. Create a fresh instance per run;
// function definitions and const tracking are per-instance state.
type Interpreter struct {
	limits    Limits
	params    eco.Params
	clock     clockwork.Clock
	funcs     map[string]function
	consts    map[string]bool
	callDepth int
}

type function struct {
	params []string
	body   []srcLine
}

type srcLine struct {
	text string // trimmed statement text
	raw  string // original line
	num  int    // 1-based source line
}

// New creates an interpreter with the given options.
func New(opts Options) *Interpreter {
	limits := opts.Limits
	if limits == (Limits{}) {
		limits = DefaultLimits()
	}
	params := opts.Params
	if params == (eco.Params{}) {
		params = eco.DefaultParams()
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Interpreter{
		limits: limits,
		params: params,
		clock:  clock,
		funcs:  make(map[string]function),
		consts: make(map[string]bool),
	}
}

// Limits returns the caps this interpreter enforces.
func (it *Interpreter) Limits() Limits { return it.limits }

type execState struct {
	ctx      context.Context
	inputs   map[string]any
	out      []string
	outLen   int
	warnings []string
	ops      int
	opsScale float64
	steps    int
	deadline time.Time
}

// Run executes source code against the provided inputs (consumed by `ask`).
// The context is honoured between statements; cancellation surfaces as a
// TIMEOUT error.
func (it *Interpreter) Run(ctx context.Context, code string, inputs map[string]any) *Result {
	start := it.clock.Now()
	st := &execState{
		ctx:      ctx,
		inputs:   inputs,
		warnings: []string{},
		opsScale: 1.0,
		deadline: start.Add(it.limits.MaxTime),
	}
	env := map[string]any{}

	lines := splitLines(code)
	runErr := it.execBlock(st, lines, env)

	elapsed := it.clock.Now().Sub(start)
	if elapsed <= 0 {
		elapsed = time.Microsecond
	}

	if runErr != nil {
		return &Result{
			Output:     strings.Join(st.out, "\n"),
			Warnings:   st.warnings,
			DurationMS: float64(elapsed.Milliseconds()),
			Err:        runErr,
		}
	}
	stats := it.params.Compute(st.ops, elapsed)
	if eco.HighUsage(st.ops) {
		st.warnings = append(st.warnings, "High estimated energy use")
	}

	output := strings.Join(st.out, "\n")
	if len(st.out) > 0 {
		output += "\n"
	}
	return &Result{
		Output:     output,
		Warnings:   st.warnings,
		Eco:        &stats,
		DurationMS: float64(elapsed.Milliseconds()),
	}
}

func splitLines(code string) []srcLine {
	raw := strings.Split(code, "\n")
	lines := make([]srcLine, len(raw))
	for i, r := range raw {
		lines[i] = srcLine{text: strings.TrimSpace(r), raw: r, num: i + 1}
	}
	return lines
}

func (st *execState) scaled(cost int) int {
	return int(float64(cost) * st.opsScale)
}

func (st *execState) opsFn() func() int {
	return func() int { return st.ops }
}

// emit appends an output line, enforcing the output cap.
func (it *Interpreter) emit(st *execState, s string) *Error {
	if st.outLen+len(s) > it.limits.MaxOutputChars {
		return &Error{Code: CodeOutputLimit, Message: "Output length limit reached"}
	}
	st.out = append(st.out, s)
	st.outLen += len(s)
	return nil
}

func copyEnv(env map[string]any) map[string]any {
	child := make(map[string]any, len(env))
	for k, v := range env {
		child[k] = v
	}
	return child
}

// execBlock runs statements against env. Loop bodies reuse the same state so
// output, warnings, steps and ops accumulate globally across nesting.
func (it *Interpreter) execBlock(st *execState, lines []srcLine, env map[string]any) *Error {
	i := 0
	for i < len(lines) {
		ln := lines[i]

		if it.clock.Now().After(st.deadline) {
			return &Error{Code: CodeTimeout, Message: "Time limit exceeded"}
		}
		if err := st.ctx.Err(); err != nil {
			return &Error{Code: CodeTimeout, Message: "Run cancelled"}
		}
		if ln.text == "" || strings.HasPrefix(ln.text, "#") {
			i++
			continue
		}
		st.steps++
		if st.steps > it.limits.MaxSteps {
			st.warnings = append(st.warnings, "Step limit exceeded")
			return &Error{Code: CodeStepLimit, Message: "Step limit exceeded"}
		}
		st.ops += costOther

		next, err := it.execStatement(st, lines, i, env)
		if err != nil {
			return err
		}
		i = next
	}
	return nil
}

// execStatement dispatches the statement at index i and returns the index of
// the next statement to run.
func (it *Interpreter) execStatement(st *execState, lines []srcLine, i int, env map[string]any) (int, *Error) {
	ln := lines[i]
	line := ln.text
	token, _, _ := strings.Cut(line, " ")

	switch token {
	case "say":
		return it.execSay(st, ln, i, env)
	case "let":
		return it.execLet(st, ln, i, env)
	case "const":
		return it.execConst(st, ln, i, env)
	case "warn":
		return it.execWarn(st, ln, i, env)
	case "ask":
		return it.execAsk(st, ln, i, env)
	case "ecoTip":
		if line != "ecoTip" {
			break
		}
		return it.execEcoTip(st, i)
	case "savePower":
		return it.execSavePower(st, ln, i)
	case "if":
		return it.execIf(st, lines, i, env)
	case "repeat":
		return it.execRepeat(st, lines, i, env)
	case "while":
		return it.execWhile(st, lines, i, env)
	case "for":
		return it.execFor(st, lines, i, env)
	case "func":
		return it.execFuncDef(st, lines, i)
	case "call":
		return it.execCall(st, ln, i, env)
	case "else":
		return i, syntaxErr(ln.num, 1, line, "Place 'else' inside an if..end block.", "'else' without matching 'if'")
	case "end":
		return i, syntaxErr(ln.num, 1, line, "Remove extra 'end' or match it with if/repeat/func.", "Unexpected 'end'")
	}
	return i, syntaxErr(ln.num, 1, line, "Check the command name or syntax.", "Unknown statement: %s", line)
}

// --- Simple statements -------------------------------------------------

func (it *Interpreter) execSay(st *execState, ln srcLine, i int, env map[string]any) (int, *Error) {
	expr := strings.TrimSpace(ln.text[len("say"):])
	val, evalErr := evalExpr(expr, env, st.opsFn())
	if evalErr != nil {
		col := len("say ") + evalErr.column
		return i, runtimeErr(ln.num, col, ln.text, "", "%s", evalErr.msg)
	}
	if err := it.emit(st, formatValue(val)); err != nil {
		return i, err
	}
	st.ops += st.scaled(costPrint)
	return i + 1, nil
}

func (it *Interpreter) execLet(st *execState, ln srcLine, i int, env map[string]any) (int, *Error) {
	rest := strings.TrimSpace(ln.text[len("let"):])
	name, expr, found := strings.Cut(rest, "=")
	if !found {
		return i, syntaxErr(ln.num, 1, ln.text, "Use: let name = expr", "Expected '=' in let statement")
	}
	name = strings.TrimSpace(name)
	expr = strings.TrimSpace(expr)
	if !isIdentifier(name) {
		return i, syntaxErr(ln.num, len("let ")+1, ln.text, "Identifiers must be letters/digits/_ and not start with a digit.", "Invalid identifier in let")
	}
	if it.consts[name] {
		if _, exists := env[name]; exists {
			return i, runtimeErr(ln.num, 1, ln.text, "", "Cannot reassign const '%s'", name)
		}
	}
	val, evalErr := evalExpr(expr, env, st.opsFn())
	if evalErr != nil {
		col := len("let ") + strings.Index(rest, "=") + 1 + evalErr.column
		return i, runtimeErr(ln.num, col, ln.text, "", "%s", evalErr.msg)
	}
	env[name] = val
	st.ops += st.scaled(costAssign)
	return i + 1, nil
}

func (it *Interpreter) execConst(st *execState, ln srcLine, i int, env map[string]any) (int, *Error) {
	rest := strings.TrimSpace(ln.text[len("const"):])
	name, expr, found := strings.Cut(rest, "=")
	if !found {
		return i, syntaxErr(ln.num, 1, ln.text, "Use: const NAME = expr", "Expected '=' in const")
	}
	name = strings.TrimSpace(name)
	expr = strings.TrimSpace(expr)
	if !isIdentifier(name) {
		return i, syntaxErr(ln.num, 1, ln.text, "", "Invalid const name")
	}
	if _, exists := env[name]; exists {
		return i, runtimeErr(ln.num, 1, ln.text, "", "'%s' already defined", name)
	}
	val, evalErr := evalExpr(expr, env, st.opsFn())
	if evalErr != nil {
		return i, runtimeErr(ln.num, 1, ln.text, "", "%s", evalErr.msg)
	}
	env[name] = val
	it.consts[name] = true
	st.ops += st.scaled(costAssign)
	return i + 1, nil
}

func (it *Interpreter) execWarn(st *execState, ln srcLine, i int, env map[string]any) (int, *Error) {
	expr := strings.TrimSpace(ln.text[len("warn"):])
	val, evalErr := evalExpr(expr, env, st.opsFn())
	if evalErr != nil {
		return i, runtimeErr(ln.num, 1, ln.text, "", "%s", evalErr.msg)
	}
	st.warnings = append(st.warnings, formatValue(val))
	st.ops += st.scaled(costOther)
	return i + 1, nil
}

func (it *Interpreter) execAsk(st *execState, ln srcLine, i int, env map[string]any) (int, *Error) {
	name := strings.TrimSpace(ln.text[len("ask"):])
	if !isIdentifier(name) {
		return i, syntaxErr(ln.num, 1, ln.text, "Use: ask name", "Invalid identifier in ask")
	}
	val, ok := st.inputs[name]
	if !ok {
		return i, runtimeErr(ln.num, 1, ln.text, "", "Missing input for '%s'", name)
	}
	env[name] = normalizeInput(val)
	st.ops += st.scaled(costIO)
	return i + 1, nil
}

var ecoTips = []string{
	"Turn off unused devices",
	"Reduce loop counts",
	"Prefer simpler math operations",
}

func (it *Interpreter) execEcoTip(st *execState, i int) (int, *Error) {
	tip := ecoTips[st.ops%len(ecoTips)]
	if err := it.emit(st, "ecoTip: "+tip); err != nil {
		return i, err
	}
	st.ops += st.scaled(costOther)
	return i + 1, nil
}

func (it *Interpreter) execSavePower(st *execState, ln srcLine, i int) (int, *Error) {
	raw := strings.TrimSpace(ln.text[len("savePower"):])
	lvl, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return i, syntaxErr(ln.num, 1, ln.text, "", "Invalid number for savePower")
	}
	st.opsScale = math.Max(0.1, 1.0-lvl*0.01)
	st.warnings = append(st.warnings, "savePower applied: level "+formatLevel(lvl))
	return i + 1, nil
}

// formatLevel renders the level so integral values keep a decimal point,
// e.g. "50.0" rather than "50".
func formatLevel(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// --- Blocks ------------------------------------------------------------

var blockOpeners = []string{"if ", "repeat ", "while ", "for ", "func "}

func opensBlock(text string) bool {
	for _, prefix := range blockOpeners {
		if strings.HasPrefix(text, prefix) {
			return true
		}
	}
	return false
}

// extractBlock collects the lines between start and its matching 'end'.
// Returns the body and the index of the 'end' line.
func extractBlock(lines []srcLine, start int) ([]srcLine, int, bool) {
	var body []srcLine
	depth := 0
	for j := start; j < len(lines); j++ {
		text := lines[j].text
		switch {
		case opensBlock(text):
			depth++
		case text == "end":
			if depth == 0 {
				return body, j, true
			}
			depth--
		}
		body = append(body, lines[j])
	}
	return nil, 0, false
}

// findBranch locates a top-level `else` and a single `elif ... then` inside
// an if-body.
func findBranch(body []srcLine) (elseIdx int, elifIdx int, elifCond string) {
	elseIdx, elifIdx = -1, -1
	depth := 0
	for j, ln := range body {
		text := ln.text
		switch {
		case opensBlock(text):
			depth++
		case text == "end":
			if depth > 0 {
				depth--
			}
		case depth == 0 && text == "else":
			if elseIdx == -1 {
				elseIdx = j
				return
			}
		case depth == 0 && elifIdx == -1 && strings.HasPrefix(text, "elif ") && strings.HasSuffix(text, " then"):
			elifIdx = j
			elifCond = strings.TrimSpace(text[len("elif ") : len(text)-len(" then")])
		}
	}
	return
}

func (it *Interpreter) execIf(st *execState, lines []srcLine, i int, env map[string]any) (int, *Error) {
	ln := lines[i]
	if !strings.HasSuffix(ln.text, " then") {
		return i, syntaxErr(ln.num, len(ln.text)+1, ln.text, "Write: if <condition> then", "Expected 'then' after if condition")
	}
	cond := strings.TrimSpace(ln.text[len("if ") : len(ln.text)-len(" then")])
	body, endIdx, ok := extractBlock(lines, i+1)
	if !ok {
		return i, syntaxErr(ln.num, 1, ln.text, "Add a matching 'end' for this 'if'.", "Missing end for block")
	}

	elseIdx, elifIdx, elifCond := findBranch(body)

	condVal, evalErr := evalExpr(cond, env, st.opsFn())
	if evalErr != nil {
		col := len("if ") + evalErr.column
		return i, runtimeErr(ln.num, col, ln.text, "Fix the condition expression after 'if'.", "%s", evalErr.msg)
	}

	thenEnd := len(body)
	if elifIdx >= 0 && elifIdx < thenEnd {
		thenEnd = elifIdx
	}
	if elseIdx >= 0 && elseIdx < thenEnd {
		thenEnd = elseIdx
	}

	var branch []srcLine
	switch {
	case truthy(condVal):
		branch = body[:thenEnd]
	case elifIdx >= 0:
		cond2Val, evalErr := evalExpr(elifCond, env, st.opsFn())
		if evalErr != nil {
			return i, runtimeErr(ln.num, len("if ")+evalErr.column, ln.text, "Fix the elif condition.", "%s", evalErr.msg)
		}
		if truthy(cond2Val) {
			elifEnd := len(body)
			if elseIdx >= 0 {
				elifEnd = elseIdx
			}
			branch = body[elifIdx+1 : elifEnd]
		} else if elseIdx >= 0 {
			branch = body[elseIdx+1:]
		}
	case elseIdx >= 0:
		branch = body[elseIdx+1:]
	}

	// Branches run in a child scope seeded from the outer environment:
	// reads flow in, writes do not escape.
	if err := it.execBlock(st, branch, copyEnv(env)); err != nil {
		return i, err
	}
	return endIdx + 1, nil
}

func (it *Interpreter) execRepeat(st *execState, lines []srcLine, i int, env map[string]any) (int, *Error) {
	ln := lines[i]
	if !strings.HasSuffix(ln.text, " times") {
		return i, syntaxErr(ln.num, len(ln.text)+1, ln.text, "Write: repeat <number> times", "Expected 'times' at end of repeat")
	}
	raw := strings.TrimSpace(ln.text[len("repeat ") : len(ln.text)-len(" times")])
	n, err := strconv.Atoi(raw)
	if err != nil {
		return i, syntaxErr(ln.num, len("repeat ")+1, ln.text, "Use: repeat <number> times", "Invalid repeat count")
	}
	body, endIdx, ok := extractBlock(lines, i+1)
	if !ok {
		return i, syntaxErr(ln.num, 1, ln.text, "Add a matching 'end' for this 'repeat'.", "Missing end for block")
	}

	if n > it.limits.MaxLoop {
		st.warnings = append(st.warnings, "Repeat count limited to "+strconv.Itoa(it.limits.MaxLoop))
		n = it.limits.MaxLoop
	}

	for iter := 0; iter < n; iter++ {
		if st.ops > it.limits.MaxSteps {
			st.warnings = append(st.warnings, "Step limit exceeded inside repeat; aborted")
			break
		}
		st.ops += st.scaled(costLoopCheck)
		// Iterations run in child scopes; repeat bodies cannot
		// accumulate state across iterations.
		if err := it.execBlock(st, body, copyEnv(env)); err != nil {
			return i, err
		}
	}
	return endIdx + 1, nil
}

func (it *Interpreter) execWhile(st *execState, lines []srcLine, i int, env map[string]any) (int, *Error) {
	ln := lines[i]
	if !strings.HasSuffix(ln.text, " then") {
		return i, syntaxErr(ln.num, len(ln.text)+1, ln.text, "Write: while <condition> then", "Expected 'then' after while condition")
	}
	cond := strings.TrimSpace(ln.text[len("while ") : len(ln.text)-len(" then")])
	body, endIdx, ok := extractBlock(lines, i+1)
	if !ok {
		return i, syntaxErr(ln.num, 1, ln.text, "Add a matching 'end' for this 'while'.", "Missing end for block")
	}

	iterations := 0
	for {
		condVal, evalErr := evalExpr(cond, env, st.opsFn())
		if evalErr != nil {
			col := len("while ") + evalErr.column
			return i, runtimeErr(ln.num, col, ln.text, "Fix the while condition.", "%s", evalErr.msg)
		}
		if !truthy(condVal) {
			break
		}
		if iterations >= it.limits.MaxLoop {
			st.warnings = append(st.warnings, "While iterations limited to "+strconv.Itoa(it.limits.MaxLoop))
			break
		}
		if st.ops > it.limits.MaxSteps {
			st.warnings = append(st.warnings, "Step limit exceeded inside while; aborted")
			break
		}
		st.ops += st.scaled(costLoopCheck)
		// While bodies run inline so mutations drive the condition.
		if err := it.execBlock(st, body, env); err != nil {
			return i, err
		}
		iterations++
	}
	return endIdx + 1, nil
}

func (it *Interpreter) execFor(st *execState, lines []srcLine, i int, env map[string]any) (int, *Error) {
	ln := lines[i]
	spec := strings.TrimSpace(ln.text[len("for"):])
	usage := "Use: for name = start to end [step s]"

	namePart, rest, found := strings.Cut(spec, "=")
	if !found || !strings.Contains(rest, " to ") {
		return i, syntaxErr(ln.num, 1, ln.text, "", "%s", usage)
	}
	varName := strings.TrimSpace(namePart)
	if !isIdentifier(varName) {
		return i, syntaxErr(ln.num, len("for ")+1, ln.text, "", "Invalid loop variable name")
	}

	rangePart, stepPart, hasStep := strings.Cut(rest, " step ")
	startExpr, endExpr, found := strings.Cut(rangePart, " to ")
	if !found {
		return i, syntaxErr(ln.num, 1, ln.text, "", "Missing 'to' in for range")
	}

	startVal, evalErr := evalExpr(strings.TrimSpace(startExpr), env, st.opsFn())
	if evalErr == nil {
		var endErr *evalError
		var endAny any
		endAny, endErr = evalExpr(strings.TrimSpace(endExpr), env, st.opsFn())
		if endErr != nil {
			evalErr = endErr
		} else {
			return it.runForLoop(st, lines, i, env, varName, startVal, endAny, stepPart, hasStep)
		}
	}
	return i, runtimeErr(ln.num, 1, ln.text, "", "%s", evalErr.msg)
}

func (it *Interpreter) runForLoop(st *execState, lines []srcLine, i int, env map[string]any, varName string, startVal, endVal any, stepPart string, hasStep bool) (int, *Error) {
	ln := lines[i]

	cur, ok1 := asFloat(startVal)
	endF, ok2 := asFloat(endVal)
	if !ok1 || !ok2 {
		return i, runtimeErr(ln.num, 1, ln.text, "", "Invalid numeric values in for")
	}

	stepF := 1.0
	if cur > endF {
		stepF = -1.0
	}
	if hasStep {
		stepVal, evalErr := evalExpr(strings.TrimSpace(stepPart), env, st.opsFn())
		if evalErr != nil {
			return i, runtimeErr(ln.num, 1, ln.text, "", "%s", evalErr.msg)
		}
		f, ok := asFloat(stepVal)
		if !ok {
			return i, runtimeErr(ln.num, 1, ln.text, "", "Invalid numeric values in for")
		}
		stepF = f
	}
	if stepF == 0 {
		return i, runtimeErr(ln.num, 1, ln.text, "", "for step cannot be 0")
	}

	body, endIdx, ok := extractBlock(lines, i+1)
	if !ok {
		return i, syntaxErr(ln.num, 1, ln.text, "Add a matching 'end' for this 'for'.", "Missing end for block")
	}

	cont := func(c float64) bool {
		if stepF > 0 {
			return c <= endF
		}
		return c >= endF
	}

	iterations := 0
	for cont(cur) {
		if iterations >= it.limits.MaxLoop {
			st.warnings = append(st.warnings, "For iterations limited to "+strconv.Itoa(it.limits.MaxLoop))
			break
		}
		if st.ops > it.limits.MaxSteps {
			st.warnings = append(st.warnings, "Step limit exceeded inside for; aborted")
			break
		}
		env[varName] = numericValue(cur)
		st.ops += st.scaled(costLoopCheck)
		if err := it.execBlock(st, body, env); err != nil {
			return i, err
		}
		iterations++
		cur += stepF
	}
	return endIdx + 1, nil
}

// numericValue keeps loop variables as ints while they are integral.
// The comparison truncates rather than rounds, so a value that drifted just
// below an integer (2.9999999999999996) stays a float.
func numericValue(f float64) any {
	if math.Abs(f-math.Trunc(f)) < 1e-9 {
		return int64(math.Trunc(f))
	}
	return f
}

// --- Functions ---------------------------------------------------------

func (it *Interpreter) execFuncDef(st *execState, lines []srcLine, i int) (int, *Error) {
	ln := lines[i]
	header := strings.Fields(strings.TrimSpace(ln.text[len("func"):]))
	if len(header) == 0 {
		return i, syntaxErr(ln.num, 1, ln.text, "Use: func name [args]", "Missing function name")
	}
	name := header[0]
	if !isIdentifier(name) {
		return i, syntaxErr(ln.num, len("func ")+1, ln.text, "", "Invalid function name")
	}
	params := header[1:]
	if len(params) > it.limits.MaxFuncParams {
		return i, syntaxErr(ln.num, 1, ln.text, "", "Too many params (max %d)", it.limits.MaxFuncParams)
	}
	body, endIdx, ok := extractBlock(lines, i+1)
	if !ok {
		return i, syntaxErr(ln.num, 1, ln.text, "Add a matching 'end' for this 'func'.", "Missing end for block")
	}
	it.funcs[name] = function{params: params, body: body}
	st.warnings = append(st.warnings, "func defined: "+name)
	st.ops += costOther
	return endIdx + 1, nil
}

func (it *Interpreter) execCall(st *execState, ln srcLine, i int, env map[string]any) (int, *Error) {
	spec := strings.TrimSpace(ln.text[len("call"):])
	if spec == "" {
		return i, syntaxErr(ln.num, 1, ln.text, "", "Missing function name")
	}

	intoVar := ""
	if main, intoPart, found := strings.Cut(spec, " into "); found {
		intoVar = strings.TrimSpace(intoPart)
		if !isIdentifier(intoVar) {
			return i, syntaxErr(ln.num, 1, ln.text, "", "Invalid target after 'into'")
		}
		spec = main
	}

	var argExprs []string
	name := strings.TrimSpace(spec)
	if main, argsPart, found := strings.Cut(spec, " with "); found {
		name = strings.TrimSpace(main)
		for _, raw := range strings.Split(argsPart, ",") {
			if s := strings.TrimSpace(raw); s != "" {
				argExprs = append(argExprs, s)
			}
		}
	}
	if !isIdentifier(name) {
		return i, syntaxErr(ln.num, len("call ")+1, ln.text, "", "Invalid function name")
	}
	fn, ok := it.funcs[name]
	if !ok {
		return i, runtimeErr(ln.num, len("call ")+1, ln.text, "", "Unknown function '%s'", name)
	}
	if len(argExprs) != len(fn.params) {
		return i, runtimeErr(ln.num, len("call ")+1, ln.text, "", "Argument count mismatch")
	}

	local := make(map[string]any, len(fn.params))
	for idx, expr := range argExprs {
		val, evalErr := evalExpr(expr, env, st.opsFn())
		if evalErr != nil {
			return i, runtimeErr(ln.num, 1, ln.text, "", "%s", evalErr.msg)
		}
		local[fn.params[idx]] = val
	}

	ret, err := it.execFunction(st, fn, local)
	if err != nil {
		if err.Line == 0 {
			err.Line = ln.num
			err.LineText = ln.text
		}
		return i, err
	}
	st.ops += st.scaled(costFuncCall)

	if intoVar != "" {
		env[intoVar] = ret
	} else if ret != nil {
		if err := it.emit(st, formatValue(ret)); err != nil {
			return i, err
		}
	}
	return i + 1, nil
}

// execFunction runs a function body in its own scope. `return` is only
// recognised at the top level of the body.
func (it *Interpreter) execFunction(st *execState, fn function, local map[string]any) (any, *Error) {
	if it.callDepth >= it.limits.MaxCallDepth {
		return nil, &Error{Code: CodeRuntime, Message: "Call depth limit exceeded"}
	}
	it.callDepth++
	defer func() { it.callDepth-- }()

	i := 0
	for i < len(fn.body) {
		ln := fn.body[i]
		if it.clock.Now().After(st.deadline) {
			return nil, &Error{Code: CodeTimeout, Message: "Time limit exceeded"}
		}
		text := ln.text
		if text == "" || strings.HasPrefix(text, "#") {
			i++
			continue
		}
		if text == "return" || strings.HasPrefix(text, "return ") {
			expr := strings.TrimSpace(text[len("return"):])
			if expr == "" {
				return nil, nil
			}
			val, evalErr := evalExpr(expr, local, st.opsFn())
			if evalErr != nil {
				return nil, runtimeErr(ln.num, 1, text, "", "%s", evalErr.msg)
			}
			return val, nil
		}
		st.steps++
		if st.steps > it.limits.MaxSteps {
			return nil, &Error{Code: CodeStepLimit, Message: "Step limit exceeded in function"}
		}
		st.ops += costOther
		next, err := it.execStatement(st, fn.body, i, local)
		if err != nil {
			return nil, err
		}
		i = next
	}
	return nil, nil
}

// --- Helpers -----------------------------------------------------------

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if i == 0 && !isIdentStart(c) {
			return false
		}
		if i > 0 && !isIdentPart(c) {
			return false
		}
	}
	return true
}

// normalizeInput coerces JSON-decoded inputs into interpreter value types.
func normalizeInput(v any) any {
	switch x := v.(type) {
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return int64(x)
		}
		return x
	case int:
		return int64(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalizeInput(e)
		}
		return out
	}
	return v
}
