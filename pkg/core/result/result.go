package result

import (
	"github.com/gofiber/fiber/v2"
)

func OK(c *fiber.Ctx, v interface{}) error {
	return c.Status(200).JSON(fiber.Map{"status": 200, "data": v})
}

// Created 新建资源返回 201
func Created(c *fiber.Ctx, v interface{}) error {
	return c.Status(201).JSON(fiber.Map{"status": 201, "data": v})
}

// Accepted 已接收待异步处理
func Accepted(c *fiber.Ctx, message string) error {
	return c.Status(200).JSON(fiber.Map{"status": 200, "message": message})
}

func Once(c *fiber.Ctx, v interface{}, err error) error {
	if err != nil {
		return err
	}
	return OK(c, v)
}
