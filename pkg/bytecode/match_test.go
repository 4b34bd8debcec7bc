package bytecode

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertSymmetric(t *testing.T, code []byte, table JumpTable) {
	t.Helper()
	require.Len(t, table, len(code))
	for i, b := range code {
		target, ok := table.Target(i)
		if !Opcode(b).IsBracket() {
			assert.False(t, ok, "offset %d (%q) should have no jump", i, b)
			continue
		}
		require.True(t, ok, "bracket at %d has no partner", i)
		back, ok := table.Target(target)
		require.True(t, ok)
		assert.Equal(t, i, back, "table[table[%d]] != %d", i, i)
		if Opcode(b) == OpLoopOpen {
			assert.Greater(t, target, i)
			assert.Equal(t, OpLoopClose, Opcode(code[target]))
		} else {
			assert.Less(t, target, i)
			assert.Equal(t, OpLoopOpen, Opcode(code[target]))
		}
	}
}

func TestMatchBalanced(t *testing.T) {
	tests := []string{
		"",
		"[]",
		"+[-]",
		"[[]]",
		"[][]",
		"a[b[c]d]e[f]g",
		"++++++++[>++++[>++>+++>+++>+<<<<-]>+>+>->>+[<]<-]>>.",
	}

	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			table, err := Match([]byte(src))
			require.NoError(t, err)
			assertSymmetric(t, []byte(src), table)
		})
	}
}

func TestMatchNestedPairs(t *testing.T) {
	table, err := Match([]byte("[[]]"))
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{0, 3}, {1, 2}}, table.Pairs())
}

// randomBalanced builds a balanced program of n brackets mixed with other
// instructions and comment bytes.
func randomBalanced(r *rand.Rand, n int) []byte {
	filler := []byte("+-<>.,x \n")
	var out []byte
	open := 0
	for remaining := n; remaining > 0 || open > 0; {
		if r.Intn(3) == 0 {
			out = append(out, filler[r.Intn(len(filler))])
			continue
		}
		if remaining > 0 && (open == 0 || r.Intn(2) == 0) {
			out = append(out, '[')
			open++
			remaining--
		} else {
			out = append(out, ']')
			open--
		}
	}
	return out
}

func TestMatchSymmetricRandom(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		code := randomBalanced(r, r.Intn(40))
		table, err := Match(code)
		require.NoError(t, err, "program %q", code)
		assertSymmetric(t, code, table)
	}
}

func TestMatchUnmatchedClose(t *testing.T) {
	_, err := Match([]byte("+[]]-]"))
	require.Error(t, err)

	var se *StructuralError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, UnmatchedClose, se.Kind)
	assert.Equal(t, []int{3}, se.Positions)
	assert.ErrorIs(t, err, ErrUnmatchedClose)
	assert.NotErrorIs(t, err, ErrUnmatchedOpen)
	assert.Contains(t, err.Error(), "position 3")
}

func TestMatchUnmatchedOpens(t *testing.T) {
	_, err := Match([]byte("[x[[]+["))
	require.Error(t, err)

	var se *StructuralError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, UnmatchedOpen, se.Kind)
	assert.Equal(t, []int{0, 2, 6}, se.Positions)
	assert.ErrorIs(t, err, ErrUnmatchedOpen)
	assert.Equal(t, "unmatched loop-open(s) at positions: [0, 2, 6]", err.Error())
	assert.True(t, IsStructural(err))
}

func TestMatchCloseBeforeOpen(t *testing.T) {
	_, err := Match([]byte("]["))
	assert.ErrorIs(t, err, ErrUnmatchedClose)
}

func TestMatchAllCollectsEverything(t *testing.T) {
	table, errs := MatchAll([]byte("][[]]]["))
	require.Len(t, errs, 3)

	assert.Equal(t, UnmatchedClose, errs[0].Kind)
	assert.Equal(t, []int{0}, errs[0].Positions)
	assert.Equal(t, UnmatchedClose, errs[1].Kind)
	assert.Equal(t, []int{5}, errs[1].Positions)
	assert.Equal(t, UnmatchedOpen, errs[2].Kind)
	assert.Equal(t, []int{6}, errs[2].Positions)

	assert.Equal(t, [][2]int{{1, 4}, {2, 3}}, table.Pairs())
}

func TestMatchAllClean(t *testing.T) {
	_, errs := MatchAll([]byte("+[>[-]<]"))
	assert.Empty(t, errs)
}

func TestJumpTableTargetOutOfRange(t *testing.T) {
	table, err := Match([]byte("[]"))
	require.NoError(t, err)

	_, ok := table.Target(-1)
	assert.False(t, ok)
	_, ok = table.Target(2)
	assert.False(t, ok)
}
