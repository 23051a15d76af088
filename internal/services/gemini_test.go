package services

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQuestionFromGenerated(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
		options int
		intro   string
	}{
		{
			name:    "four options with conversation",
			raw:     "<question>Introduction: 駅で\nConversation: 男: すみません\n女: はい\nQuestion: 男の人はどこへ行きますか。\nOptions:\n1. 駅\n2. 銀行\n3. 学校\n4. 病院\nCorrectAnswer: 2</question>",
			options: 4,
			intro:   "駅で",
		},
		{
			name:    "three option response item",
			raw:     "<question>Introduction: 1番 友達に会いました。\nConversation: 男: おはよう\nQuestion: 何と言いますか。\nOptions:\n1. おはよう\n2. こんばんは\n3. さようなら\nCorrectAnswer: 1</question>",
			options: 3,
			intro:   "友達に会いました。",
		},
		{
			name:    "four options missing conversation",
			raw:     "<question>Introduction: 駅で\nQuestion: どこ？\nOptions:\n1. a\n2. b\n3. c\n4. d\nCorrectAnswer: 1</question>",
			wantErr: true,
		},
		{
			name:    "missing correct answer",
			raw:     "<question>Introduction: 駅で\nQuestion: どこ？\nOptions:\n1. a\n2. b\n3. c</question>",
			wantErr: true,
		},
		{
			name:    "no options",
			raw:     "<question>Introduction: 駅で\nConversation: c\nQuestion: どこ？\nCorrectAnswer: 1</question>",
			wantErr: true,
		},
		{
			name:    "no block",
			raw:     "I cannot help with that.",
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q, err := questionFromGenerated(tc.raw)
			if tc.wantErr {
				require.Error(t, err)
				var uerr *UnavailableError
				require.ErrorAs(t, err, &uerr)
				return
			}
			require.NoError(t, err)
			require.Len(t, q.Options, tc.options)
			require.Equal(t, tc.intro, q.Introduction)
			require.NotNil(t, q.CorrectAnswer)
		})
	}
}
