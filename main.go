// Command sentcnn trains and runs a convolutional sentence polarity classifier.
package main

import (
	"os"

	_ "github.com/EricLina/sentcnn/backend/cpu"
	"github.com/EricLina/sentcnn/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
