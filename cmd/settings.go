package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/spigell/hh-notifier/internal/logger"
	"github.com/spigell/hh-notifier/internal/store"
	"go.uber.org/zap"
)

const (
	settingsDone = "Done"

	maxSearchDepth = 10
)

// settingsCmd edits chat settings straight in the local database, without
// going through the bot. Useful for the first setup and for fixing a chat
// while the bot is stopped.
var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Interactively edit per-chat search settings in the local database",
	Run: func(cmd *cobra.Command, args []string) {
		log, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
		if err != nil {
			panic(err)
		}

		config, err := getConfig()
		if err != nil {
			log.Fatal("can not parse config", zap.Error(err))
		}

		st, err := store.NewSQLite(config.Storage.Path, store.Settings{
			Query:       config.Search.Query,
			MinSalary:   config.Search.MinSalary,
			Experience:  config.Search.Experience,
			Area:        config.Search.Area,
			RemoteOnly:  config.Search.RemoteOnly,
			SearchDepth: config.Search.Depth,
		}, log)
		if err != nil {
			log.Fatal("opening store", zap.Error(err))
		}
		defer st.Close()

		chatID, err := pickChat(st)
		if err != nil {
			log.Fatal("choosing a chat", zap.Error(err))
		}

		if err := editSettings(st, chatID); err != nil {
			log.Fatal("editing settings", zap.Error(err))
		}
	},
}

func pickChat(st store.Store) (int64, error) {
	chats, err := st.Chats()
	if err != nil {
		return 0, err
	}

	if len(chats) == 0 {
		return 0, fmt.Errorf("no chats registered yet, send /start to the bot first")
	}

	items := make([]string, len(chats))
	for i, id := range chats {
		items[i] = strconv.FormatInt(id, 10)
	}

	prompt := promptui.Select{
		Label: "Choose a chat",
		Items: items,
	}

	i, _, err := prompt.Run()
	if err != nil {
		return 0, err
	}

	return chats[i], nil
}

func editSettings(st store.Store, chatID int64) error {
	for {
		settings, err := st.Settings(chatID)
		if err != nil {
			return err
		}

		fields := []string{
			fmt.Sprintf("Query: %s", settings.Query),
			fmt.Sprintf("Min salary: %d", settings.MinSalary),
			fmt.Sprintf("Experience: %s", settings.Experience),
			fmt.Sprintf("Area: %s", settings.Area),
			fmt.Sprintf("Remote only: %t", settings.RemoteOnly),
			fmt.Sprintf("Search depth: %d", settings.SearchDepth),
			settingsDone,
		}

		prompt := promptui.Select{
			Label: fmt.Sprintf("Settings for chat %d", chatID),
			Items: fields,
		}

		i, choice, err := prompt.Run()
		if err != nil {
			return err
		}

		if choice == settingsDone {
			return nil
		}

		if err := editField(st, chatID, i, settings); err != nil {
			return err
		}
	}
}

func editField(st store.Store, chatID int64, field int, settings store.Settings) error {
	switch field {
	case 0:
		value, err := askString("Search query", settings.Query)
		if err != nil {
			return err
		}
		return st.SetQuery(chatID, value)
	case 1:
		value, err := askUint("Minimum salary, 0 to disable", settings.MinSalary)
		if err != nil {
			return err
		}
		return st.SetMinSalary(chatID, value)
	case 2:
		value, err := askString("Experience id, empty for any", settings.Experience)
		if err != nil {
			return err
		}
		return st.SetExperience(chatID, value)
	case 3:
		value, err := askString("Area id, empty for any", settings.Area)
		if err != nil {
			return err
		}
		return st.SetArea(chatID, value)
	case 4:
		prompt := promptui.Select{
			Label: "Remote only",
			Items: []string{"true", "false"},
		}
		_, choice, err := prompt.Run()
		if err != nil {
			return err
		}
		return st.SetRemoteOnly(chatID, choice == "true")
	case 5:
		value, err := askUint(fmt.Sprintf("Search depth in pages, 1-%d", maxSearchDepth), uint(settings.SearchDepth))
		if err != nil {
			return err
		}
		if value < 1 || value > maxSearchDepth {
			return fmt.Errorf("search depth must be between 1 and %d", maxSearchDepth)
		}
		return st.SetSearchDepth(chatID, int(value))
	}

	return nil
}

func askString(label, current string) (string, error) {
	prompt := promptui.Prompt{
		Label:   label,
		Default: current,
	}

	value, err := prompt.Run()
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(value), nil
}

func askUint(label string, current uint) (uint, error) {
	prompt := promptui.Prompt{
		Label:   label,
		Default: strconv.FormatUint(uint64(current), 10),
		Validate: func(input string) error {
			if _, err := strconv.ParseUint(strings.TrimSpace(input), 10, 32); err != nil {
				return fmt.Errorf("a non-negative number is expected")
			}
			return nil
		},
	}

	value, err := prompt.Run()
	if err != nil {
		return 0, err
	}

	parsed, err := strconv.ParseUint(strings.TrimSpace(value), 10, 32)
	if err != nil {
		return 0, err
	}

	return uint(parsed), nil
}

func init() {
	rootCmd.AddCommand(settingsCmd)
}
