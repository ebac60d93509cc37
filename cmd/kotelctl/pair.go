package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arloliu/go-kotel/boiler"
	"github.com/arloliu/go-kotel/token"
)

var pairCmd = &cobra.Command{
	Use:   "pair [code]",
	Short: "Pairs with the device using the code shown on its display",
	Long: wrapString(`Without a code, makes the device show a new code on its display and asks for
it. The token issued by the device is stored in the state file.`),
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := viper.BindPFlags(cmd.Flags()); err != nil {
			return err
		}

		pairing := &boiler.Pairing{BaseURL: viper.GetString("url")}
		ctx := cmd.Context()

		var code string
		if len(args) == 1 {
			code = args[0]
		} else {
			if err := pairing.RequestCode(ctx); err != nil {
				return err
			}
			fmt.Fprint(os.Stderr, "Enter the code shown on the boiler display: ")
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil {
				return err
			}
			code = line
		}

		tok, err := pairing.SubmitCode(ctx, code)
		if err != nil {
			return err
		}

		storage, err := openStorage()
		if err != nil {
			return err
		}
		defer storage.Close()

		tokens, err := token.NewStore(storage)
		if err != nil {
			return err
		}
		if err := tokens.Set(tok); err != nil {
			return err
		}
		fmt.Println("paired successfully")

		return nil
	},
}
