package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"superconnector/internal/logger"
	"superconnector/internal/store"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a profile against a running super-connector API",
	Run: func(cmd *cobra.Command, _ []string) {
		register(cmd)
	},
}

func init() {
	rootCmd.AddCommand(registerCmd)

	registerCmd.Flags().StringP("addr", "a", "http://localhost:8000", "base url of a running super-connector API")
}

// register walks through an interactive profile registration and posts it
// to the API.
func register(cmd *cobra.Command) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	addr := strings.TrimRight(cmd.Flag("addr").Value.String(), "/")

	namePrompt := promptui.Prompt{
		Label: "Name",
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return errors.New("name must not be empty")
			}
			return nil
		},
	}
	name, err := namePrompt.Run()
	if err != nil {
		logger.Fatal("reading name", zap.Error(err))
	}

	phonePrompt := promptui.Prompt{
		Label: "Phone",
		Validate: func(input string) error {
			_, err := store.NormalizePhone(input)
			return err
		},
	}
	phone, err := phonePrompt.Run()
	if err != nil {
		logger.Fatal("reading phone", zap.Error(err))
	}

	resumePrompt := promptui.Prompt{
		Label: "Resume file (empty to skip)",
		Validate: func(input string) error {
			path := strings.TrimSpace(input)
			if path == "" {
				return nil
			}
			_, err := os.Stat(path)
			return err
		},
	}
	resumePath, err := resumePrompt.Run()
	if err != nil {
		logger.Fatal("reading resume path", zap.Error(err))
	}
	resumePath = strings.TrimSpace(resumePath)

	confirm := promptui.Select{
		Label: fmt.Sprintf("Register %s against %s?", strings.TrimSpace(name), addr),
		Items: []string{PromptYes, PromptNo},
	}
	_, action, err := confirm.Run()
	if err != nil {
		logger.Fatal("exiting", zap.Error(err))
	}
	if action == PromptNo {
		logger.Info("exiting", zap.String("reason", "got no from prompt"))
		return
	}

	user, err := postRegistration(addr, name, phone, resumePath)
	if err != nil {
		logger.Fatal("registering user", zap.Error(err))
	}

	logger.Info("user registered",
		zap.String("id", user.ID),
		zap.Bool("has_resume", user.HasResume),
	)

	pretty, _ := json.MarshalIndent(user, "", "  ")
	fmt.Println(string(pretty))
}

func postRegistration(addr, name, phone, resumePath string) (*store.User, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("name", name); err != nil {
		return nil, err
	}
	if err := w.WriteField("phone", phone); err != nil {
		return nil, err
	}

	if resumePath != "" {
		f, err := os.Open(resumePath)
		if err != nil {
			return nil, fmt.Errorf("opening resume file: %w", err)
		}
		defer f.Close()

		field, err := w.CreateFormFile("resume", filepath.Base(resumePath))
		if err != nil {
			return nil, err
		}
		if _, err := io.Copy(field, f); err != nil {
			return nil, err
		}
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Post(addr+"/api/discord/register", w.FormDataContentType(), &buf)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var user store.User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	return &user, nil
}
