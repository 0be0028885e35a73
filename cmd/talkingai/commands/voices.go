package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	deepgramtts "github.com/koscakluka/talkingai/core/texttospeech/deepgram"
)

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List the available speech voices",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, titleStyle.Render("Voices"))
		for _, voice := range deepgramtts.GetAvailableVoices() {
			fmt.Fprintf(out, "%-18s %s\n", voice.ID,
				subtleStyle.Render(fmt.Sprintf("%s, %s, %s", voice.Name, voice.Gender, voice.Accent)))
		}
	},
}
