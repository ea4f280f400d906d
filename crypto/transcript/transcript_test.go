package transcript

import "testing"

func TestChallengeDeterministic(t *testing.T) {
	a := New("test")
	b := New("test")
	a.AppendMessage("m", []byte("hello"))
	b.AppendMessage("m", []byte("hello"))
	if a.ChallengeScalar("c").Equal(b.ChallengeScalar("c")) != 1 {
		t.Fatal("identical transcripts produced different challenges")
	}
}

func TestChallengeBindsInputs(t *testing.T) {
	a := New("test")
	b := New("test")
	a.AppendMessage("m", []byte("hello"))
	b.AppendMessage("m", []byte("hellp"))
	if a.ChallengeScalar("c").Equal(b.ChallengeScalar("c")) == 1 {
		t.Fatal("different messages produced the same challenge")
	}

	// Framing prevents label/message boundary shifts.
	c := New("test")
	d := New("test")
	c.AppendMessage("ab", []byte("c"))
	d.AppendMessage("a", []byte("bc"))
	if c.ChallengeBytes("x") == d.ChallengeBytes("x") {
		t.Fatal("boundary shift produced the same challenge")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	a := New("test")
	a.AppendU64("n", 7)
	fork := a.Clone()
	fork.AppendU64("extra", 1)
	b := New("test")
	b.AppendU64("n", 7)
	if a.ChallengeBytes("c") != b.ChallengeBytes("c") {
		t.Fatal("clone mutated the original transcript")
	}
}

func TestSuccessiveChallengesDiffer(t *testing.T) {
	a := New("test")
	if a.ChallengeBytes("c") == a.ChallengeBytes("c") {
		t.Fatal("challenge was not absorbed into the state")
	}
}
