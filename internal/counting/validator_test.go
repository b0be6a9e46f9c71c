package counting

import "testing"

func testState(count int64, lastUser string, mutate func(*Settings)) *GuildState {
	settings := enabledSettings()
	if mutate != nil {
		mutate(&settings)
	}
	return &GuildState{
		GuildID:    "guild-1",
		Count:      count,
		LastUserID: lastUser,
		Settings:   settings,
	}
}

func TestDecide_AcceptsNextNumber(t *testing.T) {
	state := testState(41, "someone-else", nil)

	decision := Decide(state, submission("user-1", "42"))

	if decision.Verdict != VerdictAccept {
		t.Fatalf("Expected accept, got %s (%s)", decision.Verdict, decision.Reason)
	}
	if decision.NewCount != 42 {
		t.Errorf("Expected new count 42, got %d", decision.NewCount)
	}
}

func TestDecide_IgnoreConditions(t *testing.T) {
	tests := []struct {
		name   string
		state  *GuildState
		sub    Submission
	}{
		{
			name: "counting disabled",
			state: testState(5, "", func(s *Settings) {
				s.Enabled = false
			}),
			sub: submission("user-1", "6"),
		},
		{
			name: "no channel configured",
			state: testState(5, "", func(s *Settings) {
				s.ChannelID = ""
			}),
			sub: submission("user-1", "6"),
		},
		{
			name:  "wrong channel",
			state: testState(5, "", nil),
			sub: func() Submission {
				s := submission("user-1", "6")
				s.ChannelID = "other-chan"
				return s
			}(),
		},
		{
			name:  "bot author",
			state: testState(5, "", nil),
			sub: func() Submission {
				s := submission("user-1", "6")
				s.AuthorIsBot = true
				return s
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := Decide(tt.state, tt.sub)
			if decision.Verdict != VerdictIgnore {
				t.Errorf("Expected ignore, got %s", decision.Verdict)
			}
		})
	}
}

func TestDecide_AccountTooYoung(t *testing.T) {
	state := testState(5, "", func(s *Settings) {
		s.MinAccountAgeDays = 30
	})

	sub := submission("user-1", "6")
	sub.AccountAgeDays = 7

	decision := Decide(state, sub)

	if decision.Verdict != VerdictReject {
		t.Fatalf("Expected reject, got %s", decision.Verdict)
	}
	if decision.Reason != ReasonAccountAge {
		t.Errorf("Expected reason account_age, got %s", decision.Reason)
	}
}

func TestDecide_AccountAgeCheckedBeforeContent(t *testing.T) {
	// A too-young account posting garbage must reject on age, not ruin on
	// content.
	state := testState(5, "", func(s *Settings) {
		s.MinAccountAgeDays = 30
	})

	sub := submission("user-1", "not a number")
	sub.AccountAgeDays = 0

	decision := Decide(state, sub)

	if decision.Verdict != VerdictReject || decision.Reason != ReasonAccountAge {
		t.Errorf("Expected account_age reject, got %s (%s)", decision.Verdict, decision.Reason)
	}
}

func TestDecide_SameUserRestriction(t *testing.T) {
	state := testState(5, "user-1", func(s *Settings) {
		s.SameUserRestricted = true
	})

	decision := Decide(state, submission("user-1", "6"))

	if decision.Verdict != VerdictReject || decision.Reason != ReasonSameUser {
		t.Fatalf("Expected same_user reject, got %s (%s)", decision.Verdict, decision.Reason)
	}

	// A different author with the correct number is accepted.
	decision = Decide(state, submission("user-2", "6"))
	if decision.Verdict != VerdictAccept {
		t.Errorf("Expected accept for different author, got %s", decision.Verdict)
	}
}

func TestDecide_SameUserAllowedAfterReset(t *testing.T) {
	// LastUserID is cleared on ruin and rewind; the restriction must not
	// apply then.
	state := testState(0, "", func(s *Settings) {
		s.SameUserRestricted = true
	})

	decision := Decide(state, submission("user-1", "1"))
	if decision.Verdict != VerdictAccept {
		t.Errorf("Expected accept with empty last user, got %s", decision.Verdict)
	}
}

func TestDecide_NonNumberRuins(t *testing.T) {
	state := testState(5, "", nil)

	decision := Decide(state, submission("user-1", "six"))

	if decision.Verdict != VerdictRuin || decision.Reason != ReasonNotANumber {
		t.Errorf("Expected not_a_number ruin, got %s (%s)", decision.Verdict, decision.Reason)
	}
}

func TestDecide_WrongNumberRuins(t *testing.T) {
	state := testState(5, "", nil)

	for _, content := range []string{"5", "7", "100", "0"} {
		decision := Decide(state, submission("user-1", content))
		if decision.Verdict != VerdictRuin || decision.Reason != ReasonWrongNumber {
			t.Errorf("Content %q: expected wrong_number ruin, got %s (%s)",
				content, decision.Verdict, decision.Reason)
		}
	}
}

func TestDecide_RuinDisabledRejectsInstead(t *testing.T) {
	state := testState(5, "", func(s *Settings) {
		s.AllowRuin = false
	})

	decision := Decide(state, submission("user-1", "99"))
	if decision.Verdict != VerdictReject || decision.Reason != ReasonWrongNumber {
		t.Errorf("Expected wrong_number reject, got %s (%s)", decision.Verdict, decision.Reason)
	}

	decision = Decide(state, submission("user-1", "lol"))
	if decision.Verdict != VerdictReject || decision.Reason != ReasonNotANumber {
		t.Errorf("Expected not_a_number reject, got %s (%s)", decision.Verdict, decision.Reason)
	}
}

func TestDecide_ExpectedCarriedOnReject(t *testing.T) {
	state := testState(14, "", nil)

	decision := Decide(state, submission("user-1", "99"))

	if decision.Expected != 15 {
		t.Errorf("Expected expected=15, got %d", decision.Expected)
	}
}

func TestParseCountLiteral(t *testing.T) {
	tests := []struct {
		name    string
		content string
		value   int64
		ok      bool
	}{
		{"simple", "42", 42, true},
		{"one", "1", 1, true},
		{"zero", "0", 0, true},
		{"surrounding whitespace", "  42  ", 42, true},
		{"empty", "", 0, false},
		{"whitespace only", "   ", 0, false},
		{"word", "forty-two", 0, false},
		{"trailing text", "42!", 0, false},
		{"leading text", "count 42", 0, false},
		{"internal space", "4 2", 0, false},
		{"leading zero", "042", 0, false},
		{"double zero", "00", 0, false},
		{"positive sign", "+42", 0, false},
		{"negative sign", "-42", 0, false},
		{"decimal", "42.0", 0, false},
		{"hex", "0x2A", 0, false},
		{"arabic-indic digits", "٤٢", 0, false},
		{"fullwidth digits", "４２", 0, false},
		{"underscore separator", "1_000", 0, false},
		{"newline around", "\n42\n", 42, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, ok := parseCountLiteral(tt.content)
			if ok != tt.ok {
				t.Fatalf("parseCountLiteral(%q) ok = %v, want %v", tt.content, ok, tt.ok)
			}
			if ok && value != tt.value {
				t.Errorf("parseCountLiteral(%q) = %d, want %d", tt.content, value, tt.value)
			}
		})
	}
}

func TestParseCountLiteral_Overflow(t *testing.T) {
	// 20 digits is beyond int64. It is still a number, just one that can
	// never equal the expected count, so the wrong-number path applies.
	value, ok := parseCountLiteral("99999999999999999999")
	if !ok {
		t.Fatal("Expected overflow literal to parse as a number")
	}
	if value != -1 {
		t.Errorf("Expected sentinel value -1, got %d", value)
	}

	state := testState(5, "", nil)
	decision := Decide(state, submission("user-1", "99999999999999999999"))
	if decision.Verdict != VerdictRuin || decision.Reason != ReasonWrongNumber {
		t.Errorf("Expected wrong_number ruin for overflow, got %s (%s)", decision.Verdict, decision.Reason)
	}
}
